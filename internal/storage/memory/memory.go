// Package memory is an in-process ledger.Store. It backs the memory data
// backend and serves as the reference implementation in tests.
package memory

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"conti/internal/core"
	"conti/internal/ledger"
)

var ErrClosed = errors.New("memory store closed")

var _ ledger.Store = (*Store)(nil)

type Store struct {
	mu       sync.RWMutex
	closed   bool
	accounts []core.Account
	cats     []core.Category
	txs      []core.Transaction
	lastID   struct{ acc, cat, tx int64 }
}

func New() *Store {
	return &Store{}
}

// NewFromFiles seeds categories from base/seed_categories.txt, one name per
// line. Blank lines and lines starting with # are ignored.
func NewFromFiles(base string) *Store {
	s := New()
	for _, name := range readLines(filepath.Join(base, "seed_categories.txt")) {
		_, _ = s.GetOrCreateCategory(context.Background(), name)
	}
	return s
}

func (s *Store) Snapshot(ctx context.Context, fn func(ledger.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(reader{s})
}

func (s *Store) GetOrCreateCategory(_ context.Context, name string) (int64, error) {
	name, err := core.NormalizeCategoryName(name)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	for _, c := range s.cats {
		if ledger.Fold(c.Name) == ledger.Fold(name) {
			return c.ID, nil
		}
	}
	s.lastID.cat++
	s.cats = append(s.cats, core.Category{ID: s.lastID.cat, Name: name})
	return s.lastID.cat, nil
}

func (s *Store) ListCategories(context.Context) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := slices.Clone(s.cats)
	slices.SortFunc(out, func(a, b core.Category) int {
		return strings.Compare(ledger.Fold(a.Name), ledger.Fold(b.Name))
	})
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a core.Account) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	s.lastID.acc++
	a.ID = s.lastID.acc
	a.Name = strings.TrimSpace(a.Name)
	s.accounts = append(s.accounts, a)
	return a.ID, nil
}

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	if s.account(t.AccountID) == nil {
		return 0, core.ErrAccountNotFound
	}
	if t.CategoryID != nil && s.category(*t.CategoryID) == nil {
		return 0, core.ErrCategoryMissing
	}
	s.lastID.tx++
	t.ID = s.lastID.tx
	s.txs = append(s.txs, t)
	return t.ID, nil
}

func (s *Store) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	i := slices.IndexFunc(s.accounts, func(a core.Account) bool { return a.ID == id })
	if i < 0 {
		return core.ErrAccountNotFound
	}
	if slices.ContainsFunc(s.txs, func(t core.Transaction) bool { return t.AccountID == id }) {
		return core.ErrAccountInUse
	}
	s.accounts = slices.Delete(s.accounts, i, i+1)
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) account(id int64) *core.Account {
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			return &s.accounts[i]
		}
	}
	return nil
}

func (s *Store) category(id int64) *core.Category {
	for i := range s.cats {
		if s.cats[i].ID == id {
			return &s.cats[i]
		}
	}
	return nil
}

// reader runs under the store's read lock held by Snapshot.
type reader struct{ s *Store }

func (r reader) FindAccounts(context.Context) ([]core.Account, error) {
	return slices.Clone(r.s.accounts), nil
}

func (r reader) FindTransactions(_ context.Context, p ledger.Predicate, o ledger.Order, limit, offset int) ([]core.TransactionRow, error) {
	rows := r.matching(p)
	slices.SortStableFunc(rows, o.Compare)
	if offset > len(rows) {
		offset = len(rows)
	}
	rows = rows[max(offset, 0):]
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

func (r reader) CountTransactions(_ context.Context, p ledger.Predicate) (int, error) {
	return len(r.matching(p)), nil
}

func (r reader) SumTransactions(_ context.Context, p ledger.Predicate) ([]ledger.SumBucket, error) {
	return ledger.BucketRows(r.matching(p)), nil
}

func (r reader) matching(p ledger.Predicate) []core.TransactionRow {
	out := []core.TransactionRow{}
	for _, t := range r.s.txs {
		row := r.denormalize(t)
		if p.Matches(row) {
			out = append(out, row)
		}
	}
	return out
}

func (r reader) denormalize(t core.Transaction) core.TransactionRow {
	row := core.TransactionRow{Transaction: t}
	if a := r.s.account(t.AccountID); a != nil {
		row.AccountName = a.Name
		row.AccountColor = a.Color
		row.AccountKind = a.Kind
	}
	if t.CategoryID != nil {
		if c := r.s.category(*t.CategoryID); c != nil {
			name := c.Name
			row.CategoryName = &name
		}
	}
	return row
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}
