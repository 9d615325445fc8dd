package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  CategoryType = "INCOME"
	Expense CategoryType = "EXPENSE"
)

// PlaceholderName is shown where a category name cannot be resolved.
const PlaceholderName = "—"

type (
	CategoryType string

	// User is an opaque copy of the account returned by the API. Raw keeps
	// every field the API sent so the session can round-trip it untouched.
	User struct {
		ID    int64           `json:"id"`
		Name  string          `json:"name"`
		Email string          `json:"email"`
		Raw   json.RawMessage `json:"-"`
	}

	Category struct {
		ID   int64        `json:"id"`
		Name string       `json:"name"`
		Type CategoryType `json:"type"`
	}

	Transaction struct {
		ID         int64           `json:"id"`
		Type       CategoryType    `json:"type"`
		Title      *string         `json:"title"`
		Amount     decimal.Decimal `json:"amount"`
		CategoryID int64           `json:"category_id"`
		Date       Instant         `json:"date"`
		Note       *string         `json:"note"`
	}

	Budget struct {
		ID          int64           `json:"id"`
		CategoryID  int64           `json:"category_id"`
		Month       Month           `json:"month"`
		LimitAmount decimal.Decimal `json:"limit_amount"`
	}

	// SummaryRow is the server-side aggregate of spend for one category in
	// one month, joined against its limit.
	SummaryRow struct {
		Month        Month           `json:"month"`
		CategoryID   int64           `json:"category_id"`
		CategoryName string          `json:"category_name"`
		LimitAmount  decimal.Decimal `json:"limit_amount"`
		Spent        decimal.Decimal `json:"spent"`
		Remaining    decimal.Decimal `json:"remaining"`
	}

	// Instant is a point in time as exchanged with the API. The API emits
	// naive ISO timestamps that are UTC by convention.
	Instant struct {
		time.Time
	}
)

var (
	ErrInvalidType     = errors.New("invalid category type")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidMonth    = errors.New("invalid month")
	ErrMissingCategory = errors.New("missing category")
	ErrEmptyName       = errors.New("empty name")
)

func (t CategoryType) Valid() bool {
	return t == Income || t == Expense
}

// ParseCategoryType accepts any casing; unknown values are rejected.
func ParseCategoryType(s string) (CategoryType, error) {
	t := CategoryType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

// Label returns the Serbian label used in badges.
func (t CategoryType) Label() string {
	if t == Income {
		return "Prihod"
	}
	return "Rashod"
}

// UnmarshalJSON keeps the raw payload alongside the decoded fields.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*u = User(p)
	u.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes the raw payload back when one was captured.
func (u User) MarshalJSON() ([]byte, error) {
	if len(u.Raw) > 0 {
		return u.Raw, nil
	}
	type plain User
	return json.Marshal(plain(u))
}

// DisplayName prefers the user's name, then the email.
func (u User) DisplayName() string {
	if s := strings.TrimSpace(u.Name); s != "" {
		return s
	}
	if s := strings.TrimSpace(u.Email); s != "" {
		return s
	}
	return "Korisnik"
}

// Initials returns up to two uppercase letters for the avatar.
func (u User) Initials() string {
	s := strings.TrimSpace(u.Name)
	if s == "" {
		s = strings.TrimSpace(u.Email)
	}
	if s == "" {
		return "U"
	}
	parts := strings.Fields(s)
	if len(parts) >= 2 {
		return strings.ToUpper(firstRune(parts[0]) + firstRune(parts[1]))
	}
	if strings.Contains(s, "@") {
		return strings.ToUpper(firstRune(s))
	}
	r := []rune(s)
	if len(r) > 2 {
		r = r[:2]
	}
	return strings.ToUpper(string(r))
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// TitleOrEmpty dereferences the optional title.
func (t Transaction) TitleOrEmpty() string {
	if t.Title == nil {
		return ""
	}
	return *t.Title
}

// NoteOrPlaceholder dereferences the optional note, substituting the placeholder.
func (t Transaction) NoteOrPlaceholder() string {
	if t.Note == nil || strings.TrimSpace(*t.Note) == "" {
		return PlaceholderName
	}
	return *t.Note
}

// Over reports whether spending exceeded the limit.
func (r SummaryRow) Over() bool {
	return r.Remaining.IsNegative()
}

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseInstant parses the timestamp shapes the API is known to produce.
// Values without a zone are taken as UTC.
func ParseInstant(s string) (Instant, error) {
	s = strings.TrimSpace(s)
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Instant{Time: t.UTC()}, nil
		}
	}
	return Instant{}, fmt.Errorf("parse instant %q: unsupported format", s)
}

func (i *Instant) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = Instant{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := ParseInstant(s)
	if err != nil {
		return err
	}
	*i = v
	return nil
}

func (i Instant) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
}
