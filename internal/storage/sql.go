package storage

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"

	"conti/internal/ledger"
)

// foldFunc lower-cases text inside SQLite exactly like ledger.Fold, so
// text matching and text ordering agree with the in-memory store.
const foldFunc = "conti_fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case nil:
			return nil, nil
		case string:
			return ledger.Fold(v), nil
		case []byte:
			return ledger.Fold(string(v)), nil
		default:
			return v, nil
		}
	})
}

// whereClause translates a predicate into a parameterized WHERE clause.
// User input only ever travels in args.
func whereClause(p ledger.Predicate) (string, []any) {
	if len(p) == 0 {
		return "", nil
	}
	var (
		conds []string
		args  []any
	)
	for _, c := range p {
		switch c := c.(type) {
		case ledger.AccountEquals:
			conds = append(conds, "t.account_id = ?")
			args = append(args, c.AccountID)
		case ledger.DateFrom:
			conds = append(conds, "t.date >= ?")
			args = append(args, c.Date.ISO())
		case ledger.DateTo:
			conds = append(conds, "t.date <= ?")
			args = append(args, c.Date.ISO())
		case ledger.SignClass:
			switch c.Sign {
			case ledger.SignIncome:
				conds = append(conds, "t.amount_cents > 0")
			case ledger.SignExpense:
				conds = append(conds, "t.amount_cents < 0")
			}
		case ledger.TextMatch:
			conds = append(conds, "(instr("+foldFunc+"(COALESCE(t.note, '')), ?) > 0 OR instr("+foldFunc+"(COALESCE(c.name, '')), ?) > 0)")
			args = append(args, c.Needle, c.Needle)
		}
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "\nWHERE " + strings.Join(conds, " AND "), args
}

var orderColumns = map[ledger.SortKey]string{
	ledger.SortDate:        "t.date",
	ledger.SortCategory:    foldFunc + "(COALESCE(c.name, ''))",
	ledger.SortDescription: foldFunc + "(COALESCE(t.note, ''))",
	ledger.SortAmount:      "t.amount_cents",
	ledger.SortAccount:     foldFunc + "(a.name)",
	ledger.SortIdentity:    "t.id",
}

func orderClause(o ledger.Order) string {
	terms := o.Terms()
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		col, ok := orderColumns[t.Key]
		if !ok {
			col = orderColumns[ledger.SortDate]
		}
		dir := " ASC"
		if t.Desc {
			dir = " DESC"
		}
		parts = append(parts, col+dir)
	}
	return "\nORDER BY " + strings.Join(parts, ", ")
}
