package core

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultCollation is the language used to order category names.
var DefaultCollation = language.MustParse("sr-Latn")

// Reconciler merges server summary rows with the budgets known for a month
// into the single list that drives the budgets chart and table.
type Reconciler struct {
	Lang language.Tag
}

// NewReconciler returns a reconciler ordering names by the given language.
func NewReconciler(lang language.Tag) *Reconciler {
	return &Reconciler{Lang: lang}
}

// Reconcile returns one row per category that has a summary row or a budget
// for month. Summary rows always win over synthesized ones; a budget with no
// summary yet gets spent=0 and remaining=limit. Rows are ordered by category
// name under the reconciler's collation; equal names keep ascending category
// id order.
func (r *Reconciler) Reconcile(summary []SummaryRow, budgets []Budget, month Month, names map[int64]string) []SummaryRow {
	byCat := make(map[int64]SummaryRow, len(summary)+len(budgets))
	order := make([]int64, 0, len(summary)+len(budgets))

	for _, s := range summary {
		if _, seen := byCat[s.CategoryID]; !seen {
			order = append(order, s.CategoryID)
		}
		byCat[s.CategoryID] = s
	}

	for _, b := range budgets {
		if !b.Month.Equal(month) {
			continue
		}
		if _, ok := byCat[b.CategoryID]; ok {
			continue
		}
		name, ok := names[b.CategoryID]
		if !ok {
			name = PlaceholderName
		}
		byCat[b.CategoryID] = SummaryRow{
			Month:        month,
			CategoryID:   b.CategoryID,
			CategoryName: name,
			LimitAmount:  b.LimitAmount,
			Spent:        decimal.Zero,
			Remaining:    b.LimitAmount,
		}
		order = append(order, b.CategoryID)
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	rows := make([]SummaryRow, 0, len(order))
	for _, id := range order {
		rows = append(rows, byCat[id])
	}

	c := collate.New(r.lang())
	sort.SliceStable(rows, func(i, j int) bool {
		return c.CompareString(rows[i].CategoryName, rows[j].CategoryName) < 0
	})
	return rows
}

func (r *Reconciler) lang() language.Tag {
	if r == nil || r.Lang == language.Und {
		return DefaultCollation
	}
	return r.Lang
}

// Reconcile uses the default collation.
func Reconcile(summary []SummaryRow, budgets []Budget, month Month, names map[int64]string) []SummaryRow {
	return (*Reconciler)(nil).Reconcile(summary, budgets, month, names)
}

// ExpenseCategoryNames builds the id→name lookup from EXPENSE categories.
func ExpenseCategoryNames(categories []Category) map[int64]string {
	names := make(map[int64]string)
	for _, c := range categories {
		if c.Type == Expense {
			names[c.ID] = c.Name
		}
	}
	return names
}

// FilterCategories returns the categories of type t, in input order.
func FilterCategories(categories []Category, t CategoryType) []Category {
	out := make([]Category, 0, len(categories))
	for _, c := range categories {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// FindBudget returns the budget behind a reconciled row. With duplicates
// it is the first one listed, the same budget a synthesized row comes from.
func FindBudget(budgets []Budget, categoryID int64, month Month) (Budget, bool) {
	for _, b := range budgets {
		if b.CategoryID == categoryID && b.Month.Equal(month) {
			return b, true
		}
	}
	return Budget{}, false
}

// BudgetByID looks a budget up by id.
func BudgetByID(budgets []Budget, id int64) (Budget, bool) {
	for _, b := range budgets {
		if b.ID == id {
			return b, true
		}
	}
	return Budget{}, false
}

// DuplicateBudgets returns the category ids holding more than one budget in
// month, in first-seen order.
func DuplicateBudgets(budgets []Budget, month Month) []int64 {
	counts := make(map[int64]int)
	var dups []int64
	for _, b := range budgets {
		if !b.Month.Equal(month) {
			continue
		}
		counts[b.CategoryID]++
		if counts[b.CategoryID] == 2 {
			dups = append(dups, b.CategoryID)
		}
	}
	return dups
}
