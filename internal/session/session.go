// Package session holds the ledger currently open by the process and lets
// it be swapped while requests are in flight.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

var ErrNoSession = errors.New("no ledger open")

// Manager guards a handle with a reader-writer lock: operations hold it
// shared for their whole duration, Swap and Close hold it exclusively.
type Manager[T io.Closer] struct {
	mu         sync.RWMutex
	current    T
	open       bool
	generation uint64
	label      string
}

// NewManager returns a manager holding h. label names the ledger in logs.
func NewManager[T io.Closer](h T, label string) *Manager[T] {
	return &Manager[T]{current: h, open: true, generation: 1, label: label}
}

// Read runs fn with the current handle. The handle cannot be swapped or
// closed until fn returns.
func (m *Manager[T]) Read(ctx context.Context, fn func(h T, generation uint64) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.open {
		return ErrNoSession
	}
	return fn(m.current, m.generation)
}

// Swap installs next, closes the previous handle and bumps the generation.
// It waits for in-flight reads to finish.
func (m *Manager[T]) Swap(ctx context.Context, next T, label string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, wasOpen, prevLabel := m.current, m.open, m.label
	m.current, m.open, m.label = next, true, label
	m.generation++

	slog.InfoContext(ctx, "Ledger session swapped",
		"from", prevLabel,
		"to", label,
		"generation", m.generation)

	if wasOpen {
		if err := prev.Close(); err != nil {
			return m.generation, fmt.Errorf("close previous ledger %s: %w", prevLabel, err)
		}
	}
	return m.generation, nil
}

// Current reports the generation and label of the open ledger.
func (m *Manager[T]) Current() (uint64, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.generation, m.label, m.open
}

// Close closes the current handle. Later reads fail with ErrNoSession.
func (m *Manager[T]) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return nil
	}
	m.open = false
	var zero T
	h := m.current
	m.current = zero
	return h.Close()
}
