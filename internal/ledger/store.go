package ledger

import (
	"context"

	"conti/internal/core"
)

// Reader is the read side of the record store. All calls made through one
// Reader handed out by Store.Snapshot observe the same data.
type Reader interface {
	FindAccounts(ctx context.Context) ([]core.Account, error)
	// FindTransactions returns matching rows in order. limit NoLimit returns
	// every row from offset on.
	FindTransactions(ctx context.Context, p Predicate, o Order, limit, offset int) ([]core.TransactionRow, error)
	CountTransactions(ctx context.Context, p Predicate) (int, error)
	// SumTransactions returns per (account kind, folded category name)
	// partial sums of positive and negative amounts.
	SumTransactions(ctx context.Context, p Predicate) ([]SumBucket, error)
}

// Store is the record store collaborator.
type Store interface {
	// Snapshot runs fn against a consistent read view of the store.
	Snapshot(ctx context.Context, fn func(Reader) error) error
	// GetOrCreateCategory returns the id of the category with the given name,
	// compared case-insensitively, creating it when missing.
	GetOrCreateCategory(ctx context.Context, name string) (int64, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateAccount(ctx context.Context, a core.Account) (int64, error)
	AddTransaction(ctx context.Context, t core.Transaction) (int64, error)
	// DeleteAccount fails with core.ErrAccountInUse while transactions
	// reference the account.
	DeleteAccount(ctx context.Context, id int64) error
	Close() error
}

// SumBucket is a partial sum over rows sharing an account kind and category.
type SumBucket struct {
	Kind     core.AccountKind
	Category string
	Positive core.Money
	Negative core.Money
}
