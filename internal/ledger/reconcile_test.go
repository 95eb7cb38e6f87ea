package ledger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conti/internal/core"
	"conti/internal/ledger"
)

func reconcile(s ledger.Store, accountID int64) (ledger.Report, error) {
	var rep ledger.Report
	err := s.Snapshot(context.Background(), func(r ledger.Reader) error {
		var err error
		rep, err = ledger.Reconcile(context.Background(), r, accountID)
		return err
	})
	return rep, err
}

func TestReconcileReimbursableAccount(t *testing.T) {
	f := seed(t)

	// Travel history: +300, -420, -25, -31, +100. Never square after the
	// first row, so the carry of 300 enters the window.
	rep, err := reconcile(f.store, f.travel)
	require.NoError(t, err)

	assert.Equal(t, "Travel", rep.AccountName)
	assert.Equal(t, int64(30000-42000-2500-3100+10000), rep.CurrentBalance.Cents)
	assert.Equal(t, int64(30000), rep.InitialCarry.Cents)

	require.Len(t, rep.Rows, 3)
	assert.Equal(t, int64(-12000), rep.Rows[0].Adjusted.Cents)
	assert.Equal(t, "partial: 300,00 € of 420,00 €", rep.Rows[0].Note)
	assert.Equal(t, int64(-2500), rep.Rows[1].Adjusted.Cents)
	assert.Equal(t, int64(-3100), rep.Rows[2].Adjusted.Cents)
	assert.Equal(t, int64(-17600), rep.TotalOutstanding.Cents)
	assert.Equal(t, int64(10000), rep.RemainingCarry.Cents)
	assert.Equal(t, "2024-01-05 to 2024-01-08", rep.Period)
}

func TestReconcileErrors(t *testing.T) {
	f := seed(t)

	_, err := reconcile(f.store, 0)
	assert.ErrorIs(t, err, core.ErrAccountRequired)
	assert.True(t, core.IsValidationError(err))

	_, err = reconcile(f.store, 999)
	assert.ErrorIs(t, err, core.ErrAccountNotFound)

	_, err = reconcile(f.store, f.cash)
	assert.ErrorIs(t, err, core.ErrNotReimbursable)
	assert.True(t, core.IsDomainError(err))
}

func TestResolveReimbursementWindowAfterSettlement(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	// Square the account, then add one fresh expense.
	_, err := f.store.AddTransaction(ctx, core.Transaction{AccountID: f.travel, Date: core.MustDate("2024-02-01"), Amount: core.Money{Cents: 7600}})
	require.NoError(t, err)
	_, err = f.store.AddTransaction(ctx, core.Transaction{AccountID: f.travel, Date: core.MustDate("2024-02-02"), Amount: core.Money{Cents: -1999}})
	require.NoError(t, err)

	var w ledger.WindowResult
	err = f.store.Snapshot(ctx, func(r ledger.Reader) error {
		var err error
		w, err = ledger.ResolveReimbursementWindow(ctx, r, f.travel)
		return err
	})
	require.NoError(t, err)

	assert.Zero(t, w.InitialCarry.Cents)
	require.Len(t, w.Window, 1)
	assert.Equal(t, int64(-1999), w.Window[0].Amount.Cents)
	assert.Equal(t, int64(-1999), w.CurrentBalance.Cents)
}
