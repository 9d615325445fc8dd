package core

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// FormState is the lifecycle of a modal form.
type FormState int

const (
	FormEditing FormState = iota
	FormSubmitting
	FormClosed
)

func (s FormState) String() string {
	switch s {
	case FormEditing:
		return "editing"
	case FormSubmitting:
		return "submitting"
	case FormClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Request payloads, shaped as the API expects them.
type (
	NewTransaction struct {
		Type       CategoryType    `json:"type"`
		Title      *string         `json:"title"`
		Amount     decimal.Decimal `json:"amount"`
		CategoryID int64           `json:"category_id"`
		Date       Instant         `json:"date"`
		Note       *string         `json:"note"`
	}

	BudgetInput struct {
		CategoryID  int64           `json:"category_id"`
		Month       Month           `json:"month"`
		LimitAmount decimal.Decimal `json:"limit_amount"`
	}

	NewCategory struct {
		Name string       `json:"name"`
		Type CategoryType `json:"type"`
	}
)

// TransactionForm backs the "add transaction" modal.
type TransactionForm struct {
	State      FormState
	Type       CategoryType
	Title      string
	Amount     decimal.Decimal
	CategoryID int64
	Date       time.Time
	Note       string
	Err        string
}

// NewTransactionForm opens the form as an income dated at noon on the first
// day of month.
func NewTransactionForm(month Month, loc *time.Location) TransactionForm {
	return TransactionForm{
		State:  FormEditing,
		Type:   Income,
		Amount: decimal.Zero,
		Date:   month.DefaultTransactionDate(loc),
	}
}

// CanSubmit reports whether the required fields hold usable values.
func (f TransactionForm) CanSubmit() bool {
	return f.Amount.IsPositive() && f.CategoryID > 0 && f.Type.Valid()
}

// Begin moves the form to submitting. It returns false, leaving the form
// untouched, when nothing should be sent.
func (f *TransactionForm) Begin() bool {
	if f.State != FormEditing || !f.CanSubmit() {
		return false
	}
	f.State = FormSubmitting
	f.Err = ""
	return true
}

// Succeed closes the form.
func (f *TransactionForm) Succeed() {
	f.State = FormClosed
	f.Err = ""
}

// Fail returns the form to editing with msg shown inline.
func (f *TransactionForm) Fail(msg string) {
	f.State = FormEditing
	f.Err = msg
}

// Apply pre-selects a category created from the nested category form. A
// category of another type is ignored since it would not be selectable.
func (f *TransactionForm) Apply(r CategoryCreated) {
	if r.Category.ID > 0 && r.Category.Type == f.Type {
		f.CategoryID = r.Category.ID
	}
}

// Options returns the categories selectable for the current type.
func (f TransactionForm) Options(categories []Category) []Category {
	return FilterCategories(categories, f.Type)
}

// Payload builds the create request. Blank title and note are sent as null.
func (f TransactionForm) Payload() NewTransaction {
	return NewTransaction{
		Type:       f.Type,
		Title:      optional(f.Title),
		Amount:     f.Amount,
		CategoryID: f.CategoryID,
		Date:       Instant{Time: f.Date},
		Note:       optional(f.Note),
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// CategoryCreated is the result the nested category form hands back to its
// parent.
type CategoryCreated struct {
	Category Category
}

// CategoryForm backs the nested "new category" modal.
type CategoryForm struct {
	State FormState
	Name  string
	Type  CategoryType
	Err   string
}

func NewCategoryForm(t CategoryType) CategoryForm {
	if !t.Valid() {
		t = Income
	}
	return CategoryForm{State: FormEditing, Type: t}
}

func (f *CategoryForm) Begin() bool {
	if f.State != FormEditing || strings.TrimSpace(f.Name) == "" || !f.Type.Valid() {
		return false
	}
	f.State = FormSubmitting
	f.Err = ""
	return true
}

// Succeed closes the form and yields the result for the parent form.
func (f *CategoryForm) Succeed(c Category) CategoryCreated {
	f.State = FormClosed
	f.Err = ""
	return CategoryCreated{Category: c}
}

func (f *CategoryForm) Fail(msg string) {
	f.State = FormEditing
	f.Err = msg
}

func (f CategoryForm) Payload() NewCategory {
	return NewCategory{Name: strings.TrimSpace(f.Name), Type: f.Type}
}

// BudgetForm backs the budget editor. BudgetID is zero for a new budget.
type BudgetForm struct {
	State       FormState
	BudgetID    int64
	CategoryID  int64
	Month       Month
	LimitAmount decimal.Decimal
	Err         string
}

// NewBudgetForm opens an empty editor for defaultMonth.
func NewBudgetForm(defaultMonth Month) BudgetForm {
	return BudgetForm{State: FormEditing, Month: defaultMonth, LimitAmount: decimal.Zero}
}

// EditBudgetForm opens the editor pre-filled from b.
func EditBudgetForm(b Budget) BudgetForm {
	return BudgetForm{
		State:       FormEditing,
		BudgetID:    b.ID,
		CategoryID:  b.CategoryID,
		Month:       b.Month,
		LimitAmount: b.LimitAmount,
	}
}

func (f BudgetForm) IsEdit() bool {
	return f.BudgetID > 0
}

// CanSave mirrors the editor's save-button rule.
func (f BudgetForm) CanSave() bool {
	return f.CategoryID > 0 && !f.Month.IsZero() && f.LimitAmount.IsPositive()
}

func (f *BudgetForm) Begin() bool {
	if f.State != FormEditing || !f.CanSave() {
		return false
	}
	f.State = FormSubmitting
	f.Err = ""
	return true
}

func (f *BudgetForm) Succeed() {
	f.State = FormClosed
	f.Err = ""
}

func (f *BudgetForm) Fail(msg string) {
	f.State = FormEditing
	f.Err = msg
}

// Payload is a full replacement of the budget's editable fields.
func (f BudgetForm) Payload() BudgetInput {
	return BudgetInput{CategoryID: f.CategoryID, Month: f.Month, LimitAmount: f.LimitAmount}
}

// Options returns the categories a budget may reference.
func (f BudgetForm) Options(categories []Category) []Category {
	return FilterCategories(categories, Expense)
}

// RegisterForm holds the sign-up fields.
type RegisterForm struct {
	Name     string
	Email    string
	Password string
	Confirm  string
	Agree    bool
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validate returns advisory per-field messages; an empty map means the form
// may be sent. The server remains the authority.
func (f RegisterForm) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Ime i prezime su obavezni"
	}
	switch {
	case f.Email == "":
		errs["email"] = "Email je obavezan"
	case !emailPattern.MatchString(f.Email):
		errs["email"] = "Neispravan email"
	}
	switch {
	case f.Password == "":
		errs["password"] = "Lozinka je obavezna"
	case !ValidPassword(f.Password):
		errs["password"] = "Lozinka mora imati najmanje 8 karaktera, veliko i malo slovo i broj/simbol"
	}
	switch {
	case f.Confirm == "":
		errs["confirm"] = "Potvrdite lozinku"
	case f.Confirm != f.Password:
		errs["confirm"] = "Lozinke se ne poklapaju"
	}
	if !f.Agree {
		errs["agree"] = "Morate prihvatiti uslove"
	}
	return errs
}

// ValidPassword requires eight characters with an upper and a lower case
// letter and a digit or symbol.
func ValidPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var upper, lower, other bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r), !unicode.IsLetter(r) && r != '_':
			other = true
		}
	}
	return upper && lower && other
}
