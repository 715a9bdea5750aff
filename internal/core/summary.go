package core

import "slices"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	Category Category
	Amount   Money
	// Percent of total spend, for display only.
	Percent float64
}

// Summary holds the figures derived from the ledger. Never stored.
type Summary struct {
	Count         int
	TotalSpent    Money
	Advance       Money
	Balance       Money
	PersonalMoney Money
	ByCategory    []CategoryAmount
}

// Summarize computes totals. Categories without records are omitted; the rest
// follow the closed-set order.
func Summarize(expenses []Expense, settings Settings) Summary {
	byCat := make(map[Category]int64, len(Categories))
	var total, personal int64
	for _, e := range expenses {
		total += e.Amount.Cents
		byCat[e.Category] += e.Amount.Cents
		if e.IsPersonalMoney {
			personal += e.Amount.Cents
		}
	}

	s := Summary{
		Count:         len(expenses),
		TotalSpent:    Money{Cents: total},
		Advance:       settings.MonthlyAdvance,
		Balance:       settings.MonthlyAdvance.Sub(Money{Cents: total}),
		PersonalMoney: Money{Cents: personal},
	}
	seen := make(map[Category]bool, len(byCat))
	for _, c := range Categories {
		if cents, ok := byCat[c]; ok {
			s.ByCategory = append(s.ByCategory, categoryAmount(c, cents, total))
			seen[c] = true
		}
	}
	// Categories outside the set still count toward the total.
	var extra []Category
	for c := range byCat {
		if !seen[c] {
			extra = append(extra, c)
		}
	}
	slices.Sort(extra)
	for _, c := range extra {
		s.ByCategory = append(s.ByCategory, categoryAmount(c, byCat[c], total))
	}
	return s
}

func categoryAmount(c Category, cents, total int64) CategoryAmount {
	ca := CategoryAmount{Category: c, Amount: Money{Cents: cents}}
	if total != 0 {
		ca.Percent = float64(cents) / float64(total) * 100
	}
	return ca
}

// CategoryTotals returns the per-category totals as a map.
func (s Summary) CategoryTotals() map[Category]Money {
	out := make(map[Category]Money, len(s.ByCategory))
	for _, ca := range s.ByCategory {
		out[ca.Category] = ca.Amount
	}
	return out
}

// OverLimit reports a negative balance: spend exceeded the advance.
func (s Summary) OverLimit() bool {
	return s.Balance.Cents < 0
}
