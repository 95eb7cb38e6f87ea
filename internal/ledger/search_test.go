package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
	"conti/internal/ledger"
	"conti/internal/storage/memory"
)

type fixture struct {
	store  *memory.Store
	cash   int64
	travel int64
	rows   int
}

func strp(s string) *string { return &s }

// seed builds a small ledger over a standard and a reimbursable account.
func seed(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	s := memory.New()

	cash, err := s.CreateAccount(ctx, core.Account{Name: "Cash", Kind: core.KindStandard, Color: strp("#00aa00")})
	require.NoError(t, err)
	travel, err := s.CreateAccount(ctx, core.Account{Name: "Travel", Kind: core.KindReimbursable})
	require.NoError(t, err)

	cat := func(name string) *int64 {
		id, err := s.GetOrCreateCategory(ctx, name)
		require.NoError(t, err)
		return &id
	}

	txs := []core.Transaction{
		{AccountID: cash, Date: core.MustDate("2024-01-01"), CategoryID: cat("init"), Amount: core.Money{Cents: 100000}},
		{AccountID: cash, Date: core.MustDate("2024-01-03"), CategoryID: cat("Food"), Note: strp("Groceries"), Amount: core.Money{Cents: -4520}},
		{AccountID: cash, Date: core.MustDate("2024-01-03"), CategoryID: cat("Salary"), Amount: core.Money{Cents: 250000}},
		{AccountID: cash, Date: core.MustDate("2024-01-04"), CategoryID: cat("Transfer"), Amount: core.Money{Cents: -30000}},
		{AccountID: travel, Date: core.MustDate("2024-01-04"), CategoryID: cat("TRANSFER"), Amount: core.Money{Cents: 30000}},
		{AccountID: travel, Date: core.MustDate("2024-01-05"), CategoryID: cat("Hotel"), Note: strp("Hotel Roma"), Amount: core.Money{Cents: -42000}},
		{AccountID: travel, Date: core.MustDate("2024-01-06"), Note: strp("taxi"), Amount: core.Money{Cents: -2500}},
		{AccountID: cash, Date: core.MustDate("2024-01-07"), Note: strp("zero"), Amount: core.Money{}},
		{AccountID: travel, Date: core.MustDate("2024-01-08"), CategoryID: cat("Food"), Note: strp("dinner"), Amount: core.Money{Cents: -3100}},
		{AccountID: travel, Date: core.MustDate("2024-01-09"), CategoryID: cat("Refund"), Amount: core.Money{Cents: 10000}},
	}
	for _, tx := range txs {
		_, err := s.AddTransaction(ctx, tx)
		require.NoError(t, err)
	}
	return fixture{store: s, cash: cash, travel: travel, rows: len(txs)}
}

func search(t *testing.T, s ledger.Store, p ledger.SearchParams) ledger.SearchResult {
	t.Helper()
	var res ledger.SearchResult
	err := s.Snapshot(context.Background(), func(r ledger.Reader) error {
		var err error
		res, err = ledger.Search(context.Background(), r, ledger.NewPlan(ledger.NormalizeFilter(p)))
		return err
	})
	require.NoError(t, err)
	return res
}

func allRows(t *testing.T, s ledger.Store) []core.TransactionRow {
	t.Helper()
	var rows []core.TransactionRow
	err := s.Snapshot(context.Background(), func(r ledger.Reader) error {
		var err error
		rows, err = r.FindTransactions(context.Background(), nil, ledger.Chronological, ledger.NoLimit, 0)
		return err
	})
	require.NoError(t, err)
	return rows
}

func TestSearchSumsMatchBruteForce(t *testing.T) {
	f := seed(t)
	all := allRows(t, f.store)

	cases := []ledger.SearchParams{
		{},
		{Query: strp("FOOD")},
		{Query: strp("hotel")},
		{AccountID: &f.travel},
		{Type: strp("expense")},
		{Type: strp("income"), DateFrom: strp("2024-01-03")},
		{DateFrom: strp("04.01.2024"), DateTo: strp("2024-01-08")},
		{Limit: new(int)},
	}
	for _, p := range cases {
		res := search(t, f.store, p)

		pred := ledger.BuildPredicate(ledger.NormalizeFilter(p))
		var want []core.TransactionRow
		for _, r := range all {
			if pred.Matches(r) {
				want = append(want, r)
			}
		}
		assert.Equal(t, len(want), res.Total)
		assert.Equal(t, ledger.SumRows(want), res.Sums)
	}
}

func TestSearchExcludesTransferAndInitFromActivity(t *testing.T) {
	f := seed(t)
	res := search(t, f.store, ledger.SearchParams{Limit: intp(100)})

	assert.Equal(t, f.rows, res.Total)
	assert.Len(t, res.Items, f.rows, "transfer, init and zero rows are still listed")

	s := res.Sums
	assert.Equal(t, int64(100000), s.Init.Cents)
	assert.Equal(t, int64(260000), s.Income.Cents)
	assert.Equal(t, int64(-4520-42000-2500-3100), s.Expense.Cents)
	assert.Equal(t, int64(250000), s.IncomeStandard.Cents)
	assert.Equal(t, int64(-4520), s.ExpenseStandard.Cents)
	assert.Equal(t, int64(10000), s.IncomeReimbursable.Cents)
	assert.Equal(t, int64(-42000-2500-3100), s.ExpenseReimbursable.Cents)
	assert.Equal(t, s.Init.Cents+s.Income.Cents+s.Expense.Cents, s.Saldo().Cents)
}

func TestSearchPagingIsStableAndIndependentOfSums(t *testing.T) {
	f := seed(t)

	var seen []int64
	var sums []ledger.Sums
	for offset := 0; offset < f.rows; offset += 3 {
		res := search(t, f.store, ledger.SearchParams{Limit: intp(3), Offset: intp(offset)})
		assert.Equal(t, offset, res.Offset)
		for _, r := range res.Items {
			seen = append(seen, r.ID)
		}
		sums = append(sums, res.Sums)
	}

	ids := make([]int64, 0, f.rows)
	for _, r := range allRows(t, f.store) {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, ids, seen)
	for _, s := range sums[1:] {
		assert.Equal(t, sums[0], s)
	}
}

func TestSearchLastPageSentinel(t *testing.T) {
	f := seed(t)

	last := search(t, f.store, ledger.SearchParams{Limit: intp(4), Offset: intp(-1)})
	assert.Equal(t, 8, last.Offset)
	assert.Len(t, last.Items, 2)

	stale := search(t, f.store, ledger.SearchParams{Limit: intp(4), Offset: intp(999)})
	direct := search(t, f.store, ledger.SearchParams{Limit: intp(4), Offset: intp(8)})
	assert.Equal(t, direct, stale)
	assert.Equal(t, direct, last)
}

func TestSearchEmptyResult(t *testing.T) {
	f := seed(t)
	res := search(t, f.store, ledger.SearchParams{Query: strp("nothing like this"), Offset: intp(-1)})
	assert.Zero(t, res.Total)
	assert.Zero(t, res.Offset)
	assert.Empty(t, res.Items)
	assert.Equal(t, ledger.Sums{}, res.Sums)
}

func TestSearchDescendingAmountOrder(t *testing.T) {
	f := seed(t)
	res := search(t, f.store, ledger.SearchParams{SortBy: strp("amount"), SortDir: strp("desc"), Limit: intp(3)})
	require.Len(t, res.Items, 3)
	assert.Equal(t, int64(250000), res.Items[0].Amount.Cents)
	assert.Equal(t, int64(100000), res.Items[1].Amount.Cents)
	assert.Equal(t, int64(30000), res.Items[2].Amount.Cents)
}

func TestSearchIsIdempotent(t *testing.T) {
	f := seed(t)
	p := ledger.SearchParams{Query: strp("o"), SortBy: strp("category"), Limit: intp(5), Offset: intp(-1)}
	assert.Equal(t, search(t, f.store, p), search(t, f.store, p))
}

func intp(v int) *int { return &v }
