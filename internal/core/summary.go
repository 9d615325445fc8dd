package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RecentLimit is how many transactions the dashboard lists.
const RecentLimit = 10

// MonthOverview is the dashboard's compact summary for one month.
type MonthOverview struct {
	Month   Month
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
	Recent  []Transaction
}

// Overview totals income and expense over transactions and keeps the most
// recent ones, newest first.
func Overview(month Month, transactions []Transaction) MonthOverview {
	ov := MonthOverview{Month: month, Income: decimal.Zero, Expense: decimal.Zero}
	for _, t := range transactions {
		switch t.Type {
		case Income:
			ov.Income = ov.Income.Add(t.Amount)
		case Expense:
			ov.Expense = ov.Expense.Add(t.Amount)
		}
	}
	ov.Balance = ov.Income.Sub(ov.Expense)
	ov.Recent = RecentTransactions(transactions, RecentLimit)
	return ov
}

// RecentTransactions returns up to n transactions sorted by date descending.
// The input slice is not modified.
func RecentTransactions(transactions []Transaction, n int) []Transaction {
	sorted := make([]Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date.Time)
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// BalanceSign is 1, -1 or 0 for styling the balance card.
func (o MonthOverview) BalanceSign() int {
	return o.Balance.Sign()
}
