package core

import (
	"testing"
	"time"
)

func TestMonthPickerCursor(t *testing.T) {
	p := NewMonthPicker("2024-03", 0, time.UTC)
	if p.BrowseYear != 2024 {
		t.Fatalf("BrowseYear = %d, want 2024", p.BrowseYear)
	}

	p = p.PrevYear().PrevYear()
	if p.BrowseYear != 2022 {
		t.Fatalf("after two PrevYear BrowseYear = %d, want 2022", p.BrowseYear)
	}
	for _, c := range p.Cells() {
		if c.Selected {
			t.Fatalf("%s selected while browsing another year", c.Month)
		}
	}

	p = p.SetValue("2025-11")
	if p.BrowseYear != 2025 || p.Selected.String() != "2025-11" {
		t.Fatalf("SetValue did not reset cursor: %+v", p)
	}
	if got := p.NextYear().BrowseYear; got != 2026 {
		t.Fatalf("NextYear = %d, want 2026", got)
	}
}

func TestMonthPickerCells(t *testing.T) {
	p := NewMonthPicker("2024-03", 2024, time.UTC)
	cells := p.Cells()
	if len(cells) != 12 {
		t.Fatalf("got %d cells, want 12", len(cells))
	}

	var selected []string
	for i, c := range cells {
		if c.Month.Month != time.Month(i+1) || c.Month.Year != 2024 {
			t.Errorf("cell %d = %s", i, c.Month)
		}
		if c.Label == "" {
			t.Errorf("cell %d has no label", i)
		}
		if c.Selected {
			selected = append(selected, c.Month.String())
		}
	}
	if len(selected) != 1 || selected[0] != "2024-03" {
		t.Errorf("selected = %v, want [2024-03]", selected)
	}
}

func TestMonthPickerInvalidValue(t *testing.T) {
	p := NewMonthPicker("nope", 0, time.UTC)
	now := CurrentMonth(time.UTC)
	if !p.Selected.Equal(now) && !p.Selected.Equal(CurrentMonth(time.UTC)) {
		t.Fatalf("Selected = %s, want current month", p.Selected)
	}
	if !p.ThisMonth().Equal(CurrentMonth(time.UTC)) {
		t.Errorf("ThisMonth = %s", p.ThisMonth())
	}
	if p.Label() != p.Selected.ShortLabel() {
		t.Errorf("Label = %q", p.Label())
	}
}
