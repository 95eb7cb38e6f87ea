// Package storage is the SQLite record store behind the ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/ledger"
)

// Options tunes the per-store category id cache.
type Options struct {
	CategoryCacheSize int
	CategoryCacheTTL  time.Duration
}

func DefaultOptions() Options {
	return Options{CategoryCacheSize: 256, CategoryCacheTTL: 10 * time.Minute}
}

var (
	_ ledger.Store  = (*SQLiteRepository)(nil)
	_ ledger.Reader = (*Queries)(nil)
)

type SQLiteRepository struct {
	db         *sql.DB
	queries    *Queries
	path       string
	categories *cache.LRUCache[int64]
}

// DSN returns the driver connection string for a ledger file: foreign keys
// enforced on every pooled connection, WAL journaling.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string, opts Options) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if opts.CategoryCacheSize <= 0 {
		opts.CategoryCacheSize = DefaultOptions().CategoryCacheSize
	}
	if opts.CategoryCacheTTL <= 0 {
		opts.CategoryCacheTTL = DefaultOptions().CategoryCacheTTL
	}

	return &SQLiteRepository{
		db:         db,
		queries:    New(db),
		path:       dbPath,
		categories: cache.NewLRUCache[int64](opts.CategoryCacheSize, opts.CategoryCacheTTL),
	}, nil
}

func (r *SQLiteRepository) Path() string {
	return r.path
}

// CategoryCache exposes the category id cache for periodic cleanup.
func (r *SQLiteRepository) CategoryCache() cache.Cleaner {
	return r.categories
}

func (r *SQLiteRepository) Close() error {
	r.categories.Purge()
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Snapshot runs fn inside one read-only transaction, so count, page and
// sums all observe the same data.
func (r *SQLiteRepository) Snapshot(ctx context.Context, fn func(ledger.Reader) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) FindAccounts(ctx context.Context) ([]core.Account, error) {
	accounts, err := r.queries.FindAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// GetOrCreateCategory upserts a category by case-insensitive name.
func (r *SQLiteRepository) GetOrCreateCategory(ctx context.Context, name string) (int64, error) {
	name, err := core.NormalizeCategoryName(name)
	if err != nil {
		return 0, err
	}
	key := ledger.Fold(name)
	if id, ok := r.categories.Get(key); ok {
		return id, nil
	}

	if err := r.queries.InsertCategory(ctx, name); err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	id, err := r.queries.CategoryIDByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("get category id: %w", err)
	}
	r.categories.Set(key, id)

	slog.DebugContext(ctx, "Category resolved", "category", name, "id", id)
	return id, nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	a.Name = strings.TrimSpace(a.Name)
	id, err := r.queries.InsertAccount(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}
	slog.InfoContext(ctx, "Account created", "id", id, "name", a.Name, "kind", a.Kind)
	return id, nil
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := r.inTx(ctx, func(q *Queries) error {
		ok, err := q.AccountExists(ctx, t.AccountID)
		if err != nil {
			return fmt.Errorf("check account: %w", err)
		}
		if !ok {
			return core.ErrAccountNotFound
		}
		if t.CategoryID != nil {
			ok, err := q.CategoryExists(ctx, *t.CategoryID)
			if err != nil {
				return fmt.Errorf("check category: %w", err)
			}
			if !ok {
				return core.ErrCategoryMissing
			}
		}
		id, err = q.InsertTransaction(ctx, t)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"account_id", t.AccountID,
		"date", t.Date.ISO(),
		"amount_cents", t.Amount.Cents)
	return id, nil
}

// DeleteAccount refuses to delete an account that transactions reference.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(q *Queries) error {
		n, err := q.CountAccountTransactions(ctx, id)
		if err != nil {
			return fmt.Errorf("count account transactions: %w", err)
		}
		if n > 0 {
			return core.ErrAccountInUse
		}
		affected, err := q.DeleteAccount(ctx, id)
		if isForeignKeyViolation(err) {
			return core.ErrAccountInUse
		}
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if affected == 0 {
			return core.ErrAccountNotFound
		}
		return nil
	})
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
