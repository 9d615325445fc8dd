package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestTransactionFormSubmitIsNoOpWithoutAmountOrCategory(t *testing.T) {
	may := Month{Year: 2024, Month: time.May}
	cases := []struct {
		name     string
		amount   decimal.Decimal
		category int64
		want     bool
	}{
		{"zero amount", decimal.Zero, 1, false},
		{"missing category", dec("10"), 0, false},
		{"both missing", decimal.Zero, 0, false},
		{"valid", dec("10"), 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewTransactionForm(may, time.UTC)
			f.Amount = tc.amount
			f.CategoryID = tc.category
			if got := f.Begin(); got != tc.want {
				t.Fatalf("Begin() = %v, want %v", got, tc.want)
			}
			wantState := FormEditing
			if tc.want {
				wantState = FormSubmitting
			}
			if f.State != wantState {
				t.Fatalf("state %s, want %s", f.State, wantState)
			}
		})
	}
}

func TestTransactionFormLifecycle(t *testing.T) {
	f := NewTransactionForm(Month{Year: 2024, Month: time.May}, time.UTC)
	if f.Type != Income || f.Date.Day() != 1 || f.Date.Hour() != 12 {
		t.Fatalf("defaults %+v", f)
	}
	f.Amount = dec("1500")
	f.CategoryID = 3
	if !f.Begin() {
		t.Fatalf("expected submit")
	}
	if f.Begin() {
		t.Fatalf("second Begin while submitting must be refused")
	}
	f.Fail("Kategorija ne postoji")
	if f.State != FormEditing || f.Err != "Kategorija ne postoji" {
		t.Fatalf("after failure %+v", f)
	}
	if !f.Begin() || f.Err != "" {
		t.Fatalf("resubmit should clear the error: %+v", f)
	}
	f.Succeed()
	if f.State != FormClosed {
		t.Fatalf("state %s", f.State)
	}
}

func TestTransactionFormPayload(t *testing.T) {
	f := NewTransactionForm(Month{Year: 2024, Month: time.May}, time.UTC)
	f.Type = Expense
	f.Amount = dec("250.5")
	f.CategoryID = 2
	f.Title = "  "
	f.Note = " ručak "
	p := f.Payload()
	if p.Title != nil {
		t.Fatalf("blank title must be null")
	}
	if p.Note == nil || *p.Note != "ručak" {
		t.Fatalf("note %v", p.Note)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]any
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["type"] != "EXPENSE" || back["date"] != "2024-05-01T12:00:00.000Z" || back["title"] != nil {
		t.Fatalf("payload %s", raw)
	}
}

func TestNestedCategoryFlowPreselects(t *testing.T) {
	parent := NewTransactionForm(Month{Year: 2024, Month: time.May}, time.UTC)
	parent.Type = Expense
	parent.Amount = dec("99")

	child := NewCategoryForm(parent.Type)
	if child.Begin() {
		t.Fatalf("empty name must not submit")
	}
	child.Name = "Kafa"
	if !child.Begin() {
		t.Fatalf("expected submit")
	}
	res := child.Succeed(Category{ID: 11, Name: "Kafa", Type: Expense})
	parent.Apply(res)

	if parent.CategoryID != 11 || parent.State != FormEditing || !parent.Amount.Equal(dec("99")) {
		t.Fatalf("parent after nested create: %+v", parent)
	}

	parent.Apply(CategoryCreated{Category: Category{ID: 12, Type: Income}})
	if parent.CategoryID != 11 {
		t.Fatalf("category of another type must not be selected")
	}
}

func TestBudgetFormRoundTrip(t *testing.T) {
	may := Month{Year: 2024, Month: time.May}
	f := NewBudgetForm(may)
	f.CategoryID = 2
	f.LimitAmount = dec("5000")
	if !f.Begin() {
		t.Fatalf("expected submit")
	}
	submitted := f.Payload()

	// what the API echoes back for the created budget
	created := Budget{ID: 9, CategoryID: submitted.CategoryID, Month: submitted.Month, LimitAmount: submitted.LimitAmount}
	edit := EditBudgetForm(created)

	if !edit.IsEdit() || edit.BudgetID != 9 {
		t.Fatalf("edit form %+v", edit)
	}
	again := edit.Payload()
	if again.CategoryID != submitted.CategoryID || !again.Month.Equal(submitted.Month) || !again.LimitAmount.Equal(submitted.LimitAmount) {
		t.Fatalf("round trip %+v != %+v", again, submitted)
	}
}

func TestBudgetFormCanSave(t *testing.T) {
	may := Month{Year: 2024, Month: time.May}
	cases := []struct {
		name string
		form BudgetForm
		want bool
	}{
		{"complete", BudgetForm{CategoryID: 1, Month: may, LimitAmount: dec("1")}, true},
		{"no category", BudgetForm{Month: may, LimitAmount: dec("1")}, false},
		{"no month", BudgetForm{CategoryID: 1, LimitAmount: dec("1")}, false},
		{"zero limit", BudgetForm{CategoryID: 1, Month: may, LimitAmount: decimal.Zero}, false},
	}
	for _, tc := range cases {
		if got := tc.form.CanSave(); got != tc.want {
			t.Fatalf("%s: CanSave() = %v", tc.name, got)
		}
	}
}

func TestBudgetFormOptionsAreExpenseOnly(t *testing.T) {
	opts := NewBudgetForm(Month{Year: 2024, Month: time.May}).Options([]Category{
		{ID: 1, Name: "Plata", Type: Income},
		{ID: 2, Name: "Hrana", Type: Expense},
	})
	if len(opts) != 1 || opts[0].ID != 2 {
		t.Fatalf("options %+v", opts)
	}
}

func TestRegisterFormValidate(t *testing.T) {
	ok := RegisterForm{Name: "Ana", Email: "ana@example.com", Password: "Lozinka1", Confirm: "Lozinka1", Agree: true}
	if errs := ok.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}

	bad := RegisterForm{Email: "ana@", Password: "short", Confirm: "other"}
	errs := bad.Validate()
	for _, field := range []string{"name", "email", "password", "confirm", "agree"} {
		if errs[field] == "" {
			t.Fatalf("missing error for %s: %v", field, errs)
		}
	}
}

func TestValidPassword(t *testing.T) {
	cases := map[string]bool{
		"Lozinka1":  true,
		"Lozinka!x": true,
		"lozinka1":  false,
		"LOZINKA1":  false,
		"Lozinkaa":  false,
		"Lo1":       false,
	}
	for p, want := range cases {
		if got := ValidPassword(p); got != want {
			t.Fatalf("%q: got %v, want %v", p, got, want)
		}
	}
}
