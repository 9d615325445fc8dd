package core

import (
	"testing"
	"time"
)

func TestOverviewTotals(t *testing.T) {
	may := Month{Year: 2024, Month: time.May}
	at := func(day int) Instant { return Instant{Time: time.Date(2024, 5, day, 12, 0, 0, 0, time.UTC)} }
	txs := []Transaction{
		{ID: 1, Type: Income, Amount: dec("100000"), Date: at(1)},
		{ID: 2, Type: Expense, Amount: dec("2500.50"), Date: at(3)},
		{ID: 3, Type: Expense, Amount: dec("1000"), Date: at(2)},
	}
	ov := Overview(may, txs)
	if !ov.Income.Equal(dec("100000")) || !ov.Expense.Equal(dec("3500.50")) || !ov.Balance.Equal(dec("96499.50")) {
		t.Fatalf("totals %+v", ov)
	}
	if ov.BalanceSign() != 1 {
		t.Fatalf("sign %d", ov.BalanceSign())
	}
	if len(ov.Recent) != 3 || ov.Recent[0].ID != 2 || ov.Recent[1].ID != 3 || ov.Recent[2].ID != 1 {
		t.Fatalf("recent order %+v", ov.Recent)
	}
	if txs[0].ID != 1 {
		t.Fatalf("input slice was reordered")
	}
}

func TestRecentTransactionsLimit(t *testing.T) {
	var txs []Transaction
	for i := 0; i < 15; i++ {
		txs = append(txs, Transaction{ID: int64(i), Date: Instant{Time: time.Date(2024, 5, i+1, 0, 0, 0, 0, time.UTC)}})
	}
	got := RecentTransactions(txs, RecentLimit)
	if len(got) != RecentLimit || got[0].ID != 14 {
		t.Fatalf("got %d items, first %d", len(got), got[0].ID)
	}
}

func TestOverviewEmpty(t *testing.T) {
	ov := Overview(Month{Year: 2024, Month: time.May}, nil)
	if !ov.Balance.IsZero() || ov.BalanceSign() != 0 || len(ov.Recent) != 0 {
		t.Fatalf("empty overview %+v", ov)
	}
}
