// Package export turns computed ledger results into column-labelled
// documents and writes them out. Totals are copied from the computed
// result and never recomputed here.
package export

import (
	"context"
	"strconv"
	"strings"

	"conti/internal/core"
	"conti/internal/ledger"
)

// Column is one exported column. Unknown keys render empty cells.
type Column struct {
	Key   string
	Label string
}

var knownColumns = map[string]string{
	"date":        "Date",
	"account":     "Account",
	"category":    "Category",
	"description": "Description",
	"amount":      "Amount",
	"id":          "ID",
	"kind":        "Account kind",
	"color":       "Color",
	"original":    "Original amount",
	"covered":     "Covered",
	"note":        "Note",
}

// DefaultColumns is the column set used when the caller picks none.
var DefaultColumns = []string{"date", "account", "category", "description", "amount"}

// ParseColumns resolves caller-selected column keys, keeping their order.
func ParseColumns(keys []string) []Column {
	if len(keys) == 0 {
		keys = DefaultColumns
	}
	cols := make([]Column, 0, len(keys))
	for _, k := range keys {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		label, ok := knownColumns[k]
		if !ok {
			label = k
		}
		cols = append(cols, Column{Key: k, Label: label})
	}
	return cols
}

// Meta is one labelled summary value shown alongside the rows.
type Meta struct {
	Label string
	Value string
}

type Document struct {
	Title   string
	Columns []Column
	Rows    [][]string
	Meta    []Meta
}

// Header returns the column labels.
func (d Document) Header() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Label
	}
	return out
}

// Writer is the document sink. The returned reference locates the written
// document (a file path, a sheet range).
type Writer interface {
	Write(ctx context.Context, name string, doc Document) (ref string, err error)
}

// FromSearch builds a document over every row of a search result.
func FromSearch(title string, res ledger.SearchResult, columns []string) Document {
	cols := ParseColumns(columns)
	doc := Document{Title: title, Columns: cols, Rows: make([][]string, 0, len(res.Items))}
	for _, r := range res.Items {
		doc.Rows = append(doc.Rows, rowCells(cols, r, r.Amount, nil))
	}
	s := res.Sums
	doc.Meta = []Meta{
		{"Rows", strconv.Itoa(res.Total)},
		{"Income", s.Income.Format()},
		{"Expense", s.Expense.Format()},
		{"Income (standard)", s.IncomeStandard.Format()},
		{"Expense (standard)", s.ExpenseStandard.Format()},
		{"Income (reimbursable)", s.IncomeReimbursable.Format()},
		{"Expense (reimbursable)", s.ExpenseReimbursable.Format()},
		{"Opening balance", s.Init.Format()},
		{"Saldo", s.Saldo().Format()},
	}
	return doc
}

// FromReport builds a document over the outstanding rows of a
// reconciliation report. The amount column carries the adjusted amount.
func FromReport(rep ledger.Report, columns []string) Document {
	if len(columns) == 0 {
		columns = append(append([]string{}, DefaultColumns...), "note")
	}
	cols := ParseColumns(columns)
	doc := Document{
		Title:   "Reconciliation " + rep.AccountName,
		Columns: cols,
		Rows:    make([][]string, 0, len(rep.Rows)),
	}
	for _, rr := range rep.Rows {
		doc.Rows = append(doc.Rows, rowCells(cols, rr.Row, rr.Adjusted, &rr))
	}
	doc.Meta = []Meta{
		{"Account", rep.AccountName},
		{"Period", rep.Period},
		{"Current balance", rep.CurrentBalance.Format()},
		{"Initial carry", rep.InitialCarry.Format()},
		{"Outstanding", rep.TotalOutstanding.Format()},
	}
	return doc
}

func rowCells(cols []Column, r core.TransactionRow, amount core.Money, rr *ledger.ReconciliationRow) []string {
	cells := make([]string, len(cols))
	for i, c := range cols {
		switch c.Key {
		case "date":
			cells[i] = r.Date.ISO()
		case "account":
			cells[i] = r.AccountName
		case "category":
			cells[i] = deref(r.CategoryName)
		case "description":
			cells[i] = deref(r.Note)
		case "amount":
			cells[i] = amount.String()
		case "id":
			cells[i] = strconv.FormatInt(r.ID, 10)
		case "kind":
			cells[i] = string(r.AccountKind)
		case "color":
			cells[i] = deref(r.AccountColor)
		case "original":
			cells[i] = r.Amount.String()
		case "covered":
			if rr != nil {
				cells[i] = rr.Covered.String()
			}
		case "note":
			if rr != nil {
				cells[i] = rr.Note
			}
		}
	}
	return cells
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
