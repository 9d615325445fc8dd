package loader

import "testing"

func TestTrackerLastRequestWins(t *testing.T) {
	tr := NewTracker()
	a := tr.Begin("s|budgets", "2024-04")
	b := tr.Begin("s|budgets", "2024-05")
	other := tr.Begin("s|dashboard", "2024-04")

	if a.Current() {
		t.Fatal("older ticket still current")
	}
	if !b.Current() || !other.Current() {
		t.Fatal("newest tickets must be current")
	}

	a.Done()
	if !b.Current() {
		t.Fatal("finishing an old ticket must not clear the newer one")
	}
	b.Done()
	other.Done()
	if tr.Pending() != 0 {
		t.Fatalf("pending %d", tr.Pending())
	}

	var nilTicket *Ticket
	if !nilTicket.Current() {
		t.Fatal("nil ticket is always current")
	}
}
