package ledger

import "conti/internal/core"

// Window is the open part of a reimbursable account's history: everything
// strictly after the last point the running balance was non-negative.
type Window struct {
	Rows         []core.TransactionRow // oldest first
	InitialCarry core.Money            // running balance at the cut point
	CutIndex     int                   // index into history; -1 when never square
	Balance      core.Money            // running balance after the full history
}

// ResolveWindow scans history oldest first and cuts after the most recent
// index whose running balance is >= 0.
func ResolveWindow(history []core.TransactionRow) Window {
	w := Window{CutIndex: -1}
	var running core.Money
	for i, r := range history {
		running = running.Add(r.Amount)
		if !running.IsNegative() {
			w.CutIndex = i
			w.InitialCarry = running
		}
	}
	w.Balance = running
	w.Rows = history[w.CutIndex+1:]
	return w
}
