package ledger

import (
	"cmp"
	"fmt"
	"strings"

	"conti/internal/core"
)

// Clause is one conjunct of a Predicate. Store adapters translate each
// variant into their own query language with bound parameters.
type Clause interface {
	matches(r core.TransactionRow) bool
}

type (
	AccountEquals struct{ AccountID int64 }
	DateFrom      struct{ Date core.Date }
	DateTo        struct{ Date core.Date }
	SignClass     struct{ Sign Sign }
	// TextMatch is a case-insensitive substring match against the note or
	// the category name. Needle is already lower-cased.
	TextMatch struct{ Needle string }
)

func (c AccountEquals) matches(r core.TransactionRow) bool { return r.AccountID == c.AccountID }
func (c DateFrom) matches(r core.TransactionRow) bool      { return r.Date.Compare(c.Date) >= 0 }
func (c DateTo) matches(r core.TransactionRow) bool        { return r.Date.Compare(c.Date) <= 0 }

func (c SignClass) matches(r core.TransactionRow) bool {
	switch c.Sign {
	case SignIncome:
		return r.Amount.IsPositive()
	case SignExpense:
		return r.Amount.IsNegative()
	default:
		return true
	}
}

func (c TextMatch) matches(r core.TransactionRow) bool {
	if r.Note != nil && strings.Contains(Fold(*r.Note), c.Needle) {
		return true
	}
	return r.CategoryName != nil && strings.Contains(Fold(*r.CategoryName), c.Needle)
}

// Fold is the case folding shared by text matching and text sort keys.
// Store adapters must apply the same folding.
func Fold(s string) string {
	return strings.ToLower(s)
}

// Predicate is a conjunction of clauses; an empty Predicate matches all rows.
type Predicate []Clause

// Matches evaluates the predicate in memory.
func (p Predicate) Matches(r core.TransactionRow) bool {
	for _, c := range p {
		if !c.matches(r) {
			return false
		}
	}
	return true
}

// BuildPredicate derives the clause list from a FilterSpec.
func BuildPredicate(spec FilterSpec) Predicate {
	var p Predicate
	if spec.AccountID != nil {
		p = append(p, AccountEquals{AccountID: *spec.AccountID})
	}
	if spec.DateFrom != nil {
		p = append(p, DateFrom{Date: *spec.DateFrom})
	}
	if spec.DateTo != nil {
		p = append(p, DateTo{Date: *spec.DateTo})
	}
	if spec.Sign != SignAll {
		p = append(p, SignClass{Sign: spec.Sign})
	}
	if spec.Query != "" {
		p = append(p, TextMatch{Needle: spec.Query})
	}
	return p
}

// OrderTerm is one ORDER BY key.
type OrderTerm struct {
	Key  SortKey
	Desc bool
}

// Order is a primary sort key with identity as the tiebreaker, both in the
// same direction.
type Order struct {
	Key  SortKey
	Desc bool
}

// Chronological is oldest first, ties broken by ascending identity.
var Chronological = Order{Key: SortDate}

// Terms returns the ordering keys. Identity is appended as the secondary
// key unless it already is the primary one.
func (o Order) Terms() []OrderTerm {
	terms := []OrderTerm{{Key: o.Key, Desc: o.Desc}}
	if o.Key != SortIdentity {
		terms = append(terms, OrderTerm{Key: SortIdentity, Desc: o.Desc})
	}
	return terms
}

// Compare orders two rows; it is a total order on distinct identities.
func (o Order) Compare(a, b core.TransactionRow) int {
	for _, t := range o.Terms() {
		c := compareBy(t.Key, a, b)
		if t.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareBy(k SortKey, a, b core.TransactionRow) int {
	switch k {
	case SortDate:
		return a.Date.Compare(b.Date)
	case SortCategory:
		return cmp.Compare(foldPtr(a.CategoryName), foldPtr(b.CategoryName))
	case SortDescription:
		return cmp.Compare(foldPtr(a.Note), foldPtr(b.Note))
	case SortAmount:
		return cmp.Compare(a.Amount.Cents, b.Amount.Cents)
	case SortAccount:
		return cmp.Compare(Fold(a.AccountName), Fold(b.AccountName))
	default:
		return cmp.Compare(a.ID, b.ID)
	}
}

func foldPtr(s *string) string {
	if s == nil {
		return ""
	}
	return Fold(*s)
}

// Plan is everything a store needs to answer one search.
type Plan struct {
	Spec      FilterSpec
	Predicate Predicate
	Order     Order
	Limit     int
	Offset    int // requested; resolved against the total by ResolveOffset
}

func NewPlan(spec FilterSpec) Plan {
	return Plan{
		Spec:      spec,
		Predicate: BuildPredicate(spec),
		Order:     Order{Key: spec.SortKey, Desc: spec.Desc},
		Limit:     spec.Limit,
		Offset:    spec.Offset,
	}
}

// Key identifies a plan for request de-duplication and logging.
func (p Plan) Key() string {
	s := p.Spec
	var b strings.Builder
	fmt.Fprintf(&b, "q=%q", s.Query)
	if s.AccountID != nil {
		fmt.Fprintf(&b, "|acc=%d", *s.AccountID)
	}
	if s.DateFrom != nil {
		fmt.Fprintf(&b, "|from=%s", s.DateFrom.ISO())
	}
	if s.DateTo != nil {
		fmt.Fprintf(&b, "|to=%s", s.DateTo.ISO())
	}
	fmt.Fprintf(&b, "|sign=%s|sort=%s|desc=%t|limit=%d|offset=%d", s.Sign, s.SortKey, s.Desc, s.Limit, s.Offset)
	return b.String()
}

// LastOffset is the offset of the page holding the final row.
func LastOffset(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total - 1) / limit * limit
}

// ResolveOffset maps a requested offset onto a valid one. Negative asks for
// the last page; offsets at or past the end clamp to the last page.
func ResolveOffset(requested, total, limit int) int {
	last := LastOffset(total, limit)
	if requested < 0 || requested >= total {
		return last
	}
	return requested
}
