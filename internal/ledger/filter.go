// Package ledger implements transaction search, aggregation and the
// reimbursement reconciliation algorithm over an abstract record store.
package ledger

import (
	"strings"

	"conti/internal/core"
)

// DefaultLimit is the page size used when the caller does not ask for one.
const DefaultLimit = 15

// NoLimit asks the store for every matching row.
const NoLimit = -1

type Sign int

const (
	SignAll Sign = iota
	SignIncome
	SignExpense
)

type SortKey string

const (
	SortDate        SortKey = "date"
	SortCategory    SortKey = "category"
	SortDescription SortKey = "description"
	SortAmount      SortKey = "amount"
	SortAccount     SortKey = "account"
	SortIdentity    SortKey = "id"
)

// SearchParams is raw, user-supplied search input. A nil field means
// "no constraint".
type SearchParams struct {
	Query     *string `json:"q,omitempty"`
	AccountID *int64  `json:"account_id,omitempty"`
	DateFrom  *string `json:"date_from,omitempty"`
	DateTo    *string `json:"date_to,omitempty"`
	Type      *string `json:"type,omitempty"` // all | income | expense
	SortBy    *string `json:"sort_by,omitempty"`
	SortDir   *string `json:"sort_dir,omitempty"` // asc | desc
	Limit     *int    `json:"limit,omitempty"`
	Offset    *int    `json:"offset,omitempty"` // negative: the page holding the end of the result set
}

// FilterSpec is the normalized form of SearchParams. It never carries
// invalid values: unknown options have already been mapped to defaults.
type FilterSpec struct {
	Query     string // lower-cased; empty means absent
	AccountID *int64
	DateFrom  *core.Date
	DateTo    *core.Date
	Sign      Sign
	SortKey   SortKey
	Desc      bool
	Limit     int
	Offset    int
}

// NormalizeFilter turns raw params into a FilterSpec. It never fails:
// malformed optional input degrades to the default for that field.
func NormalizeFilter(p SearchParams) FilterSpec {
	spec := FilterSpec{
		Sign:    ParseSign(deref(p.Type)),
		SortKey: ParseSortKey(deref(p.SortBy)),
		Desc:    strings.TrimSpace(deref(p.SortDir)) == "desc",
		Limit:   DefaultLimit,
	}

	if p.Query != nil {
		spec.Query = strings.ToLower(strings.TrimSpace(*p.Query))
	}
	if p.AccountID != nil && *p.AccountID > 0 {
		id := *p.AccountID
		spec.AccountID = &id
	}
	spec.DateFrom = parseOptionalDate(p.DateFrom)
	spec.DateTo = parseOptionalDate(p.DateTo)

	if p.Limit != nil {
		spec.Limit = max(*p.Limit, 0)
	}
	if p.Offset != nil {
		spec.Offset = *p.Offset
	}
	return spec
}

// ParseSign maps the sign-class option. Anything other than the two
// named classes means "all".
func ParseSign(s string) Sign {
	switch strings.TrimSpace(s) {
	case "income":
		return SignIncome
	case "expense":
		return SignExpense
	default:
		return SignAll
	}
}

func (s Sign) String() string {
	switch s {
	case SignIncome:
		return "income"
	case SignExpense:
		return "expense"
	default:
		return "all"
	}
}

// ParseSortKey maps the sort option. Unknown keys fall back to date.
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case SortDate, SortCategory, SortDescription, SortAmount, SortAccount, SortIdentity:
		return k
	case "identity":
		return SortIdentity
	default:
		return SortDate
	}
}

func parseOptionalDate(s *string) *core.Date {
	if s == nil {
		return nil
	}
	d, err := core.ParseDate(*s)
	if err != nil {
		return nil
	}
	return &d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
