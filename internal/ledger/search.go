package ledger

import (
	"context"

	"conti/internal/core"
)

// SearchResult is one page of matching rows plus figures computed over the
// whole matching set.
type SearchResult struct {
	Items  []core.TransactionRow `json:"items"`
	Total  int                   `json:"total"`
	Offset int                   `json:"offset"` // effective, after resolution
	Limit  int                   `json:"limit"`
	Sums   Sums                  `json:"sums"`
}

// Search runs a plan against one consistent Reader: count, resolve the
// offset, fetch the page, then sum the full filtered set.
func Search(ctx context.Context, r Reader, plan Plan) (SearchResult, error) {
	total, err := r.CountTransactions(ctx, plan.Predicate)
	if err != nil {
		return SearchResult{}, core.WrapStore("count transactions", err)
	}

	offset := ResolveOffset(plan.Offset, total, plan.Limit)

	items := []core.TransactionRow{}
	if total > 0 && plan.Limit != 0 {
		items, err = r.FindTransactions(ctx, plan.Predicate, plan.Order, plan.Limit, offset)
		if err != nil {
			return SearchResult{}, core.WrapStore("find transactions", err)
		}
	}

	sums, err := AggregateWith(ctx, r, plan.Predicate)
	if err != nil {
		return SearchResult{}, err
	}

	return SearchResult{
		Items:  items,
		Total:  total,
		Offset: offset,
		Limit:  plan.Limit,
		Sums:   sums,
	}, nil
}

// AggregateWith computes Sums for every row matching p.
func AggregateWith(ctx context.Context, r Reader, p Predicate) (Sums, error) {
	buckets, err := r.SumTransactions(ctx, p)
	if err != nil {
		return Sums{}, core.WrapStore("sum transactions", err)
	}
	return Aggregate(buckets), nil
}

// Collect returns every row matching the plan's predicate in the plan's
// order, ignoring its page window. Exports use it.
func Collect(ctx context.Context, r Reader, plan Plan) ([]core.TransactionRow, error) {
	rows, err := r.FindTransactions(ctx, plan.Predicate, plan.Order, NoLimit, 0)
	if err != nil {
		return nil, core.WrapStore("find transactions", err)
	}
	return rows, nil
}
