package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mojbudzet/internal/core"
)

type (
	Credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	Registration struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}

	// AuthResult is what login and register return.
	AuthResult struct {
		AccessToken string    `json:"access_token"`
		User        core.User `json:"user"`
	}
)

const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func (c *Client) Login(ctx context.Context, cred Credentials) (AuthResult, error) {
	var out AuthResult
	err := c.Do(ctx, http.MethodPost, "auth/login", nil, cred, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, reg Registration) (AuthResult, error) {
	var out AuthResult
	err := c.Do(ctx, http.MethodPost, "auth/register", nil, reg, &out)
	return out, err
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	var out []core.Category
	if err := c.Do(ctx, http.MethodGet, "categories/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, in core.NewCategory) (core.Category, error) {
	var out core.Category
	err := c.Do(ctx, http.MethodPost, "categories/", nil, in, &out)
	return out, err
}

// ListTransactions returns transactions dated within [from, to]. Both the
// from/to names and their date_from/date_to aliases are sent.
func (c *Client) ListTransactions(ctx context.Context, from, to time.Time) ([]core.Transaction, error) {
	f := from.UTC().Format(isoMillis)
	t := to.UTC().Format(isoMillis)
	q := url.Values{
		"from":      {f},
		"to":        {t},
		"date_from": {f},
		"date_to":   {t},
	}
	var out []core.Transaction
	if err := c.Do(ctx, http.MethodGet, "transactions/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTransaction(ctx context.Context, in core.NewTransaction) (core.Transaction, error) {
	var out core.Transaction
	err := c.Do(ctx, http.MethodPost, "transactions/", nil, in, &out)
	return out, err
}

func (c *Client) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	var out []core.Budget
	if err := c.Do(ctx, http.MethodGet, "budgets/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error) {
	var out core.Budget
	err := c.Do(ctx, http.MethodPost, "budgets/", nil, in, &out)
	return out, err
}

// UpdateBudget replaces every editable field of budget id.
func (c *Client) UpdateBudget(ctx context.Context, id int64, in core.BudgetInput) (core.Budget, error) {
	var out core.Budget
	err := c.Do(ctx, http.MethodPut, "budgets/"+strconv.FormatInt(id, 10), nil, in, &out)
	return out, err
}

func (c *Client) DeleteBudget(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodDelete, "budgets/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

// BudgetSummary returns per-category spend against limits for month.
func (c *Client) BudgetSummary(ctx context.Context, month core.Month) ([]core.SummaryRow, error) {
	var out []core.SummaryRow
	q := url.Values{"month": {month.String()}}
	if err := c.Do(ctx, http.MethodGet, "budgets/summary", q, nil, &out); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Month.IsZero() {
			out[i].Month = month
		}
	}
	return out, nil
}
