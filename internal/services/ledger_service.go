package services

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"conti/internal/cache"
	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/session"
)

// Opener opens the ledger stored at path.
type Opener func(ctx context.Context, path string) (ledger.Store, error)

// LedgerService runs ledger operations against the current session. Each
// operation reads through a single store snapshot and either fully
// succeeds or fails.
type LedgerService struct {
	sessions *session.Manager[ledger.Store]
	open     Opener
	searches singleflight.Group
	logger   *log.Logger
	errors   *log.StructuredLogger
}

func NewLedgerService(sessions *session.Manager[ledger.Store], open Opener, logger *log.Logger) *LedgerService {
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		sessions: sessions,
		open:     open,
		logger:   logger,
		errors:   log.NewStructuredLogger(logger),
	}
}

// Search returns one page of matching transactions with sums over the full
// filtered set. Malformed optional params degrade to defaults. Results may
// be shared between concurrent identical callers and must not be mutated.
func (s *LedgerService) Search(ctx context.Context, p ledger.SearchParams) (ledger.SearchResult, error) {
	plan := ledger.NewPlan(ledger.NormalizeFilter(p))

	var res ledger.SearchResult
	err := s.sessions.Read(ctx, func(st ledger.Store, gen uint64) error {
		key := strconv.FormatUint(gen, 10) + "|" + plan.Key()
		v, err, shared := s.searches.Do(key, func() (any, error) {
			// Callers joining this flight must not fail because the
			// first one went away.
			flightCtx := context.WithoutCancel(ctx)
			var out ledger.SearchResult
			err := st.Snapshot(flightCtx, func(r ledger.Reader) error {
				var err error
				out, err = ledger.Search(flightCtx, r, plan)
				return err
			})
			return out, core.WrapStore("snapshot", err)
		})
		if err != nil {
			return err
		}
		res = v.(ledger.SearchResult)
		s.logger.DebugContext(ctx, "Search completed",
			append(log.NewFields().
				WithOperation(log.OpSearch).
				WithPage(res.Total, res.Offset, res.Limit).
				ToSlice(), log.FieldPlan, plan.Key(), "shared", shared)...)
		return nil
	})
	if err != nil {
		return ledger.SearchResult{}, s.fail(ctx, log.OpSearch, err, nil)
	}
	return res, nil
}

// SearchAll is Search without the page window: every matching row in the
// requested order, for exports.
func (s *LedgerService) SearchAll(ctx context.Context, p ledger.SearchParams) (ledger.SearchResult, error) {
	plan := ledger.NewPlan(ledger.NormalizeFilter(p))

	var res ledger.SearchResult
	err := s.snapshot(ctx, func(r ledger.Reader) error {
		rows, err := ledger.Collect(ctx, r, plan)
		if err != nil {
			return err
		}
		sums, err := ledger.AggregateWith(ctx, r, plan.Predicate)
		if err != nil {
			return err
		}
		res = ledger.SearchResult{Items: rows, Total: len(rows), Limit: len(rows), Sums: sums}
		return nil
	})
	if err != nil {
		return ledger.SearchResult{}, s.fail(ctx, log.OpExport, err, nil)
	}
	return res, nil
}

// Aggregate computes the sums for a filter without fetching rows.
func (s *LedgerService) Aggregate(ctx context.Context, p ledger.SearchParams) (ledger.Sums, error) {
	pred := ledger.BuildPredicate(ledger.NormalizeFilter(p))

	var sums ledger.Sums
	err := s.snapshot(ctx, func(r ledger.Reader) error {
		var err error
		sums, err = ledger.AggregateWith(ctx, r, pred)
		return err
	})
	if err != nil {
		return ledger.Sums{}, s.fail(ctx, log.OpAggregate, err, nil)
	}
	return sums, nil
}

func (s *LedgerService) ResolveReimbursementWindow(ctx context.Context, accountID int64) (ledger.WindowResult, error) {
	var w ledger.WindowResult
	err := s.snapshot(ctx, func(r ledger.Reader) error {
		var err error
		w, err = ledger.ResolveReimbursementWindow(ctx, r, accountID)
		return err
	})
	if err != nil {
		return ledger.WindowResult{}, s.fail(ctx, log.OpWindow, err, log.NewFields().WithAccount(accountID))
	}
	return w, nil
}

// AllocateCarry is pure; it never touches the store.
func (s *LedgerService) AllocateCarry(window []core.TransactionRow, initialCarry core.Money) ledger.Allocation {
	return ledger.AllocateCarry(window, initialCarry)
}

// Reconcile builds the reconciliation report of a reimbursable account.
func (s *LedgerService) Reconcile(ctx context.Context, accountID int64) (ledger.Report, error) {
	var rep ledger.Report
	err := s.snapshot(ctx, func(r ledger.Reader) error {
		var err error
		rep, err = ledger.Reconcile(ctx, r, accountID)
		return err
	})
	if err != nil {
		return ledger.Report{}, s.fail(ctx, log.OpReconcile, err, log.NewFields().WithAccount(accountID))
	}

	s.logger.DebugContext(ctx, "Reconciliation completed",
		log.FieldAccountID, accountID,
		log.FieldRows, len(rep.Rows),
		log.FieldOutstanding, rep.TotalOutstanding.Cents)
	return rep, nil
}

func (s *LedgerService) Accounts(ctx context.Context) ([]core.Account, error) {
	var accounts []core.Account
	err := s.snapshot(ctx, func(r ledger.Reader) error {
		var err error
		accounts, err = r.FindAccounts(ctx)
		return core.WrapStore("find accounts", err)
	})
	if err != nil {
		return nil, s.fail(ctx, log.OpAccounts, err, nil)
	}
	return accounts, nil
}

func (s *LedgerService) Categories(ctx context.Context) ([]core.Category, error) {
	var cats []core.Category
	err := s.store(ctx, func(st ledger.Store) error {
		var err error
		cats, err = st.ListCategories(ctx)
		return core.WrapStore("list categories", err)
	})
	if err != nil {
		return nil, s.fail(ctx, log.OpCategory, err, nil)
	}
	return cats, nil
}

// EnsureCategory returns the id of the named category, creating it when
// no category matches case-insensitively.
func (s *LedgerService) EnsureCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.store(ctx, func(st ledger.Store) error {
		var err error
		id, err = st.GetOrCreateCategory(ctx, name)
		return core.WrapStore("get or create category", err)
	})
	if err != nil {
		return 0, s.fail(ctx, log.OpCategory, err, nil)
	}
	return id, nil
}

func (s *LedgerService) CreateAccount(ctx context.Context, a core.Account) (int64, error) {
	var id int64
	err := s.store(ctx, func(st ledger.Store) error {
		var err error
		id, err = st.CreateAccount(ctx, a)
		return core.WrapStore("create account", err)
	})
	return id, err
}

func (s *LedgerService) AddTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	var id int64
	err := s.store(ctx, func(st ledger.Store) error {
		var err error
		id, err = st.AddTransaction(ctx, t)
		return core.WrapStore("add transaction", err)
	})
	return id, err
}

func (s *LedgerService) DeleteAccount(ctx context.Context, id int64) error {
	return s.store(ctx, func(st ledger.Store) error {
		return core.WrapStore("delete account", st.DeleteAccount(ctx, id))
	})
}

// OpenLedger swaps the current session to the ledger at path. In-flight
// operations finish against the previous ledger first.
func (s *LedgerService) OpenLedger(ctx context.Context, path string) (uint64, error) {
	if s.open == nil {
		return 0, fmt.Errorf("open ledger: %w", ErrSwapUnsupported)
	}
	st, err := s.open(ctx, path)
	if err != nil {
		return 0, s.fail(ctx, log.OpOpen, fmt.Errorf("open ledger %s: %w", path, err), nil)
	}
	gen, err := s.sessions.Swap(ctx, st, path)
	if err != nil {
		// The new ledger is live; only closing the old one failed.
		s.logger.WarnContext(ctx, "Previous ledger did not close cleanly", log.FieldError, err)
	}
	s.logger.InfoContext(ctx, "Ledger opened", log.FieldLedger, path, log.FieldGeneration, gen)
	return gen, nil
}

// Current reports the open ledger and its session generation.
func (s *LedgerService) Current() (generation uint64, label string, open bool) {
	return s.sessions.Current()
}

// CleanExpired sweeps the caches of the currently open ledger. It follows
// session swaps, so it can be registered once with a cache.Manager.
func (s *LedgerService) CleanExpired() int {
	removed := 0
	_ = s.store(context.Background(), func(st ledger.Store) error {
		if c, ok := st.(interface{ CategoryCache() cache.Cleaner }); ok {
			removed = c.CategoryCache().CleanExpired()
		}
		return nil
	})
	return removed
}

var _ cache.Cleaner = (*LedgerService)(nil)

func (s *LedgerService) Close() error {
	return s.sessions.Close()
}

func (s *LedgerService) snapshot(ctx context.Context, fn func(ledger.Reader) error) error {
	return s.store(ctx, func(st ledger.Store) error {
		return core.WrapStore("snapshot", st.Snapshot(ctx, fn))
	})
}

func (s *LedgerService) store(ctx context.Context, fn func(ledger.Store) error) error {
	return s.sessions.Read(ctx, func(st ledger.Store, _ uint64) error {
		return fn(st)
	})
}

// fail logs err once at the service boundary and returns it. Caller input
// problems log at warn, everything else at error.
func (s *LedgerService) fail(ctx context.Context, op string, err error, fields log.LogFields) error {
	if fields == nil {
		fields = log.NewFields()
	}

	switch {
	case core.IsValidationError(err):
		fields = fields.WithOperation(op).WithError(err).WithErrorType(log.ErrorTypeValidation)
		s.logger.WarnContext(ctx, "Ledger request rejected", fields.ToSlice()...)
	case core.IsDomainError(err):
		fields = fields.WithOperation(op).WithError(err).WithErrorType(log.ErrorTypeDomain)
		s.logger.WarnContext(ctx, "Ledger request rejected", fields.ToSlice()...)
	default:
		s.errors.LogError(ctx, "Ledger operation failed", err, op, fields.WithErrorType(log.ErrorTypeDatabase))
	}
	return err
}
