package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var monthShort = [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var monthLong = [12]string{"januar", "februar", "mart", "april", "maj", "jun", "jul", "avgust", "septembar", "oktobar", "novembar", "decembar"}

// Month is a calendar month, canonically written as "YYYY-MM".
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// CurrentMonth returns the month containing now in loc.
func CurrentMonth(loc *time.Location) Month {
	if loc == nil {
		loc = time.Local
	}
	return MonthOf(time.Now().In(loc))
}

// ParseMonth parses a strict "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	y, m, ok := strings.Cut(s, "-")
	if !ok || len(y) != 4 || len(m) != 2 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	year, err := strconv.Atoi(y)
	if err != nil || year < 1 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 1 || month > 12 {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

// FromYYYYMM parses s, falling back to the current month when s is empty
// or invalid.
func FromYYYYMM(s string, loc *time.Location) Month {
	m, err := ParseMonth(s)
	if err != nil {
		return CurrentMonth(loc)
	}
	return m
}

// String returns the canonical "YYYY-MM" form.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) Equal(o Month) bool {
	return m.Year == o.Year && m.Month == o.Month
}

// AddMonths shifts the month by n, crossing year boundaries.
func (m Month) AddMonths(n int) Month {
	t := time.Date(m.Year, m.Month+time.Month(n), 1, 12, 0, 0, 0, time.UTC)
	return MonthOf(t)
}

func (m Month) Prev() Month { return m.AddMonths(-1) }

func (m Month) Next() Month { return m.AddMonths(1) }

// Range returns the first and last instant of the month in loc. The end is
// inclusive, down to the millisecond.
func (m Month) Range(loc *time.Location) (from, to time.Time) {
	if loc == nil {
		loc = time.Local
	}
	from = time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	to = from.AddDate(0, 1, 0).Add(-time.Millisecond)
	return from, to
}

// DefaultTransactionDate is noon on the first day of the month, which stays
// inside the month whatever the client's zone offset.
func (m Month) DefaultTransactionDate(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(m.Year, m.Month, 1, 12, 0, 0, 0, loc)
}

// Contains reports whether t falls inside the month in loc.
func (m Month) Contains(t time.Time, loc *time.Location) bool {
	from, to := m.Range(loc)
	return !t.Before(from) && !t.After(to)
}

// ShortLabel renders e.g. "Mar 2024".
func (m Month) ShortLabel() string {
	if m.Month < 1 || m.Month > 12 {
		return m.String()
	}
	return monthShort[m.Month-1] + " " + strconv.Itoa(m.Year)
}

// Label renders e.g. "mart 2024".
func (m Month) Label() string {
	if m.Month < 1 || m.Month > 12 {
		return m.String()
	}
	return monthLong[m.Month-1] + " " + strconv.Itoa(m.Year)
}

func (m Month) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Month) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
