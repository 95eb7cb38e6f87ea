package ledger

import (
	"context"

	"conti/internal/core"
)

// WindowResult is the open window of one reimbursable account.
type WindowResult struct {
	AccountID      int64                 `json:"account_id"`
	AccountName    string                `json:"account_name"`
	CurrentBalance core.Money            `json:"current_balance"`
	InitialCarry   core.Money            `json:"initial_carry"`
	Window         []core.TransactionRow `json:"window"`
}

// Report is a reconciliation report for one reimbursable account.
type Report struct {
	AccountID        int64               `json:"account_id"`
	AccountName      string              `json:"account_name"`
	CurrentBalance   core.Money          `json:"current_balance"`
	InitialCarry     core.Money          `json:"initial_carry"`
	Rows             []ReconciliationRow `json:"rows"`
	TotalOutstanding core.Money          `json:"total_outstanding"`
	RemainingCarry   core.Money          `json:"remaining_carry"`
	Period           string              `json:"period"`
}

// ResolveReimbursementWindow loads the account's full history and cuts it
// at the last settled point.
func ResolveReimbursementWindow(ctx context.Context, r Reader, accountID int64) (WindowResult, error) {
	if accountID <= 0 {
		return WindowResult{}, core.ErrAccountRequired
	}

	accounts, err := r.FindAccounts(ctx)
	if err != nil {
		return WindowResult{}, core.WrapStore("find accounts", err)
	}
	var acc *core.Account
	for i := range accounts {
		if accounts[i].ID == accountID {
			acc = &accounts[i]
			break
		}
	}
	if acc == nil {
		return WindowResult{}, core.ErrAccountNotFound
	}
	if !acc.IsReimbursable() {
		return WindowResult{}, core.ErrNotReimbursable
	}

	history, err := r.FindTransactions(ctx, Predicate{AccountEquals{AccountID: accountID}}, Chronological, NoLimit, 0)
	if err != nil {
		return WindowResult{}, core.WrapStore("find transactions", err)
	}

	w := ResolveWindow(history)
	return WindowResult{
		AccountID:      acc.ID,
		AccountName:    acc.Name,
		CurrentBalance: w.Balance,
		InitialCarry:   w.InitialCarry,
		Window:         w.Rows,
	}, nil
}

// Reconcile resolves the window and allocates the carry across it.
func Reconcile(ctx context.Context, r Reader, accountID int64) (Report, error) {
	w, err := ResolveReimbursementWindow(ctx, r, accountID)
	if err != nil {
		return Report{}, err
	}
	a := AllocateCarry(w.Window, w.InitialCarry)
	return Report{
		AccountID:        w.AccountID,
		AccountName:      w.AccountName,
		CurrentBalance:   w.CurrentBalance,
		InitialCarry:     w.InitialCarry,
		Rows:             a.Rows,
		TotalOutstanding: a.TotalOutstanding,
		RemainingCarry:   a.RemainingCarry,
		Period:           a.Period(),
	}, nil
}
