package backend

import (
	"context"
	"time"

	"conti/internal/ledger"
	"conti/internal/services"
)

// BackendResult is an opened ledger and the label the session reports.
type BackendResult struct {
	Store ledger.Store
	Label string
}

// Factory creates ledger stores based on configuration
type Factory interface {
	// CreateBackend opens the ledger the process starts with.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// Opener returns the function used for session swaps, or nil when the
	// backend cannot switch ledgers.
	Opener(config Config) services.Opener
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath      string
	LedgerDir         string
	CategoryCacheSize int
	CategoryCacheTTL  time.Duration

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
