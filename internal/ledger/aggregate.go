package ledger

import (
	"conti/internal/core"
)

// Sums is the income/expense breakdown of a filtered set of transactions.
// Transfer and init rows never count as income or expense; init rows are
// reported separately as the opening balance.
type Sums struct {
	Income              core.Money `json:"sum_income"`
	Expense             core.Money `json:"sum_expense"`
	IncomeStandard      core.Money `json:"sum_income_std"`
	ExpenseStandard     core.Money `json:"sum_expense_std"`
	IncomeReimbursable  core.Money `json:"sum_income_reimb"`
	ExpenseReimbursable core.Money `json:"sum_expense_reimb"`
	Init                core.Money `json:"sum_init"`
}

// Saldo is the opening balance plus net income plus net expense.
func (s Sums) Saldo() core.Money {
	return s.Init.Add(s.Income).Add(s.Expense)
}

// Aggregate folds store partial sums into Sums.
func Aggregate(buckets []SumBucket) Sums {
	var s Sums
	for _, b := range buckets {
		s.add(b.Kind, core.ClassifyCategory(b.Category), b.Positive, b.Negative)
	}
	return s
}

// SumRows computes Sums by scanning rows directly.
func SumRows(rows []core.TransactionRow) Sums {
	var s Sums
	for _, r := range rows {
		var pos, neg core.Money
		if r.Amount.IsPositive() {
			pos = r.Amount
		} else {
			neg = r.Amount
		}
		s.add(r.AccountKind, r.CategoryClass(), pos, neg)
	}
	return s
}

func (s *Sums) add(kind core.AccountKind, class core.CategoryClass, pos, neg core.Money) {
	switch class {
	case core.ClassTransfer:
		return
	case core.ClassInit:
		s.Init = s.Init.Add(pos).Add(neg)
		return
	}
	s.Income = s.Income.Add(pos)
	s.Expense = s.Expense.Add(neg)
	if kind == core.KindReimbursable {
		s.IncomeReimbursable = s.IncomeReimbursable.Add(pos)
		s.ExpenseReimbursable = s.ExpenseReimbursable.Add(neg)
	} else {
		s.IncomeStandard = s.IncomeStandard.Add(pos)
		s.ExpenseStandard = s.ExpenseStandard.Add(neg)
	}
}

// BucketRows groups rows the way a store's SumTransactions does.
func BucketRows(rows []core.TransactionRow) []SumBucket {
	type key struct {
		kind core.AccountKind
		cat  string
	}
	idx := make(map[key]int)
	var out []SumBucket
	for _, r := range rows {
		k := key{kind: r.AccountKind, cat: foldPtr(r.CategoryName)}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, SumBucket{Kind: k.kind, Category: k.cat})
		}
		if r.Amount.IsPositive() {
			out[i].Positive = out[i].Positive.Add(r.Amount)
		} else {
			out[i].Negative = out[i].Negative.Add(r.Amount)
		}
	}
	return out
}
