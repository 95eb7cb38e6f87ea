package ledger

import (
	"fmt"

	"conti/internal/core"
)

// ReconciliationRow is an outstanding expense after carry allocation. It
// is a derived view and never persisted.
type ReconciliationRow struct {
	Row      core.TransactionRow `json:"transaction"`
	Adjusted core.Money          `json:"adjusted"`
	Covered  core.Money          `json:"covered"`
	Note     string              `json:"note,omitempty"`
}

// Allocation is the result of walking a window with a carry.
type Allocation struct {
	Rows             []ReconciliationRow `json:"rows"`
	TotalOutstanding core.Money          `json:"total_outstanding"`
	RemainingCarry   core.Money          `json:"remaining_carry"`
	Consumed         core.Money          `json:"consumed"`
	Replenished      core.Money          `json:"replenished"`
}

// AllocateCarry consumes carry against the window's expenses oldest first.
// Credits replenish the carry and produce no row; fully covered expenses
// are dropped; partially covered ones keep the uncovered part and a note.
func AllocateCarry(window []core.TransactionRow, initialCarry core.Money) Allocation {
	carry := initialCarry
	if carry.IsNegative() {
		carry = core.Money{}
	}

	out := Allocation{Rows: []ReconciliationRow{}}
	for _, r := range window {
		switch {
		case r.Amount.IsPositive():
			carry = carry.Add(r.Amount)
			out.Replenished = out.Replenished.Add(r.Amount)
			continue
		case r.Amount.IsZero():
			continue
		}

		need := r.Amount.Neg()
		consumed := core.Min(carry, need)
		adjusted := r.Amount.Add(consumed)
		carry = carry.Sub(consumed)
		out.Consumed = out.Consumed.Add(consumed)

		if adjusted.IsZero() {
			continue
		}
		row := ReconciliationRow{Row: r, Adjusted: adjusted, Covered: consumed}
		if consumed.IsPositive() {
			row.Note = fmt.Sprintf("partial: %s of %s", consumed.Format(), need.Format())
		}
		out.Rows = append(out.Rows, row)
		out.TotalOutstanding = out.TotalOutstanding.Add(adjusted)
	}
	out.RemainingCarry = carry
	return out
}

// NoPeriod labels a report with no outstanding rows.
const NoPeriod = "-"

// Period is "first to last" over the emitted rows' dates.
func (a Allocation) Period() string {
	if len(a.Rows) == 0 {
		return NoPeriod
	}
	first := a.Rows[0].Row.Date
	last := a.Rows[len(a.Rows)-1].Row.Date
	return first.ISO() + " to " + last.ISO()
}
