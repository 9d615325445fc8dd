package http

// Request parsing turns query strings and submitted forms into the core
// form models. Parsing never fails outright: a value that cannot be read
// is left at its zero value and the form's own rules decide what happens.

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"mojbudzet/internal/apiclient"
	"mojbudzet/internal/core"
)

// Layouts accepted for the transaction date field. datetime-local inputs
// submit minutes and sometimes seconds.
var dateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseMonthParam reads ?month=YYYY-MM, falling back to the current month.
func ParseMonthParam(query url.Values, loc *time.Location) core.Month {
	return core.FromYYYYMM(strings.TrimSpace(query.Get("month")), loc)
}

// ParseTransactionForm reads the add-transaction fields. Missing date or
// type keep the defaults of a freshly opened form for month.
func ParseTransactionForm(form url.Values, month core.Month, loc *time.Location) core.TransactionForm {
	f := core.NewTransactionForm(month, loc)
	if t, err := core.ParseCategoryType(form.Get("type")); err == nil {
		f.Type = t
	}
	f.Title = sanitizeInput(form.Get("title"))
	f.Note = sanitizeInput(form.Get("note"))
	f.Amount = parseAmount(form.Get("amount"))
	f.CategoryID = parseID(form.Get("category_id"))
	if d, ok := parseLocalDate(form.Get("date"), loc); ok {
		f.Date = d
	}
	return f
}

// ParseCategoryForm reads the nested new-category fields.
func ParseCategoryForm(form url.Values) core.CategoryForm {
	t, _ := core.ParseCategoryType(form.Get("type"))
	f := core.NewCategoryForm(t)
	f.Name = sanitizeInput(form.Get("name"))
	return f
}

// ParseBudgetForm reads the budget editor. id is zero when creating.
func ParseBudgetForm(form url.Values, id int64) core.BudgetForm {
	f := core.NewBudgetForm(core.Month{})
	f.BudgetID = id
	f.CategoryID = parseID(form.Get("category_id"))
	if m, err := core.ParseMonth(strings.TrimSpace(form.Get("month"))); err == nil {
		f.Month = m
	}
	f.LimitAmount = parseAmount(form.Get("limit_amount"))
	return f
}

// ParseRegisterForm reads the sign-up fields.
func ParseRegisterForm(form url.Values) core.RegisterForm {
	return core.RegisterForm{
		Name:     sanitizeInput(form.Get("name")),
		Email:    strings.TrimSpace(form.Get("email")),
		Password: form.Get("password"),
		Confirm:  form.Get("confirm"),
		Agree:    form.Get("agree") != "",
	}
}

// ParseCredentials reads the login fields. Passwords are sent untrimmed.
func ParseCredentials(form url.Values) apiclient.Credentials {
	return apiclient.Credentials{
		Email:    strings.TrimSpace(form.Get("email")),
		Password: form.Get("password"),
	}
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Neispravan format zahteva")
	}
	return nil
}

// URLParamID reads a positive numeric route parameter.
func URLParamID(r *http.Request, name string) (int64, bool) {
	id := parseID(chi.URLParam(r, name))
	return id, id > 0
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func parseAmount(s string) decimal.Decimal {
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseLocalDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			if layout == "2006-01-02" {
				t = t.Add(12 * time.Hour)
			}
			return t, true
		}
	}
	return time.Time{}, false
}
