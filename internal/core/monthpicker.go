package core

import "time"

// MonthCell is one button in the month picker grid.
type MonthCell struct {
	Month    Month
	Label    string
	Selected bool
}

// MonthPicker is the view-model behind the month selector popover. The only
// state besides the selected value is the year being browsed.
type MonthPicker struct {
	Selected   Month
	BrowseYear int
	loc        *time.Location
}

// NewMonthPicker builds a picker for value. A zero browseYear resets the
// cursor to the selected month's year.
func NewMonthPicker(value string, browseYear int, loc *time.Location) MonthPicker {
	sel := FromYYYYMM(value, loc)
	if browseYear <= 0 {
		browseYear = sel.Year
	}
	return MonthPicker{Selected: sel, BrowseYear: browseYear, loc: loc}
}

// SetValue changes the selected month and resets the browse cursor.
func (p MonthPicker) SetValue(value string) MonthPicker {
	return NewMonthPicker(value, 0, p.loc)
}

func (p MonthPicker) PrevYear() MonthPicker {
	p.BrowseYear--
	return p
}

func (p MonthPicker) NextYear() MonthPicker {
	p.BrowseYear++
	return p
}

// Cells returns the twelve months of the browsed year.
func (p MonthPicker) Cells() []MonthCell {
	cells := make([]MonthCell, 12)
	for i := range cells {
		m := Month{Year: p.BrowseYear, Month: time.Month(i + 1)}
		cells[i] = MonthCell{
			Month:    m,
			Label:    monthShort[i],
			Selected: m.Equal(p.Selected),
		}
	}
	return cells
}

// Label is the text shown in the closed selector, e.g. "Mar 2024".
func (p MonthPicker) Label() string {
	return p.Selected.ShortLabel()
}

// ThisMonth is the value picked by the "this month" shortcut.
func (p MonthPicker) ThisMonth() Month {
	return CurrentMonth(p.loc)
}
