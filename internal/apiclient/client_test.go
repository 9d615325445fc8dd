package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mojbudzet/internal/core"
)

type tokenKey struct{}

func tokenFromContext(ctx context.Context) string {
	s, _ := ctx.Value(tokenKey{}).(string)
	return s
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithTokenSource(tokenFromContext)}, opts...)
	c, err := New(Config{BaseURL: srv.URL + "/api", Timeout: time.Second}, opts...)
	require.NoError(t, err)
	return c
}

func TestBearerAndContentType(t *testing.T) {
	var gotAuth, gotType, gotPath string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"name":"Kafa","type":"EXPENSE"}`))
	})

	ctx := context.WithValue(context.Background(), tokenKey{}, "tok-123")
	cat, err := c.CreateCategory(ctx, core.NewCategory{Name: "Kafa", Type: core.Expense})
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok-123", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "/api/categories/", gotPath)
	assert.Equal(t, "Kafa", gotBody["name"])
	assert.Equal(t, core.Category{ID: 7, Name: "Kafa", Type: core.Expense}, cat)
}

func TestNoTokenNoAuthorizationHeader(t *testing.T) {
	var hadAuth bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		_, _ = w.Write([]byte(`[]`))
	})
	_, err := c.ListCategories(context.Background())
	require.NoError(t, err)
	assert.False(t, hadAuth)
}

func TestUnauthorizedRunsHook(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
	}, WithUnauthorizedHandler(func(ctx context.Context) { calls++ }))

	_, err := c.ListBudgets(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "auth_error", Kind(err))
}

func TestServerMessageSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"Budžet za ovu kategoriju i mesec već postoji"}`))
	})
	_, err := c.CreateBudget(context.Background(), core.BudgetInput{CategoryID: 1})
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Budžet za ovu kategoriju i mesec već postoji", UserMessage(err, "Greška pri čuvanju budžeta"))
	assert.False(t, IsUnauthorized(err))
	assert.Equal(t, "validation_error", Kind(err))
}

func TestFallbackWithoutMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})
	err := c.DeleteBudget(context.Background(), 4)
	require.Error(t, err)
	assert.Equal(t, "Greška pri brisanju", UserMessage(err, "Greška pri brisanju"))
	assert.Equal(t, "internal_error", Kind(err))
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	c, err := New(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.ListCategories(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	assert.Equal(t, "Greška", UserMessage(err, "Greška"))
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)
	_, err = c.ListCategories(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork), "got %v", err)
}

func TestListTransactionsQuery(t *testing.T) {
	var q map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q = map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		_, _ = w.Write([]byte(`[{"id":1,"type":"EXPENSE","title":null,"amount":250.5,"category_id":2,"date":"2024-05-03T12:00:00","note":null}]`))
	})

	from, to := core.Month{Year: 2024, Month: time.May}.Range(time.UTC)
	txs, err := c.ListTransactions(context.Background(), from, to)
	require.NoError(t, err)

	assert.Equal(t, "2024-05-01T00:00:00.000Z", q["from"])
	assert.Equal(t, "2024-05-31T23:59:59.999Z", q["to"])
	assert.Equal(t, q["from"], q["date_from"])
	assert.Equal(t, q["to"], q["date_to"])

	require.Len(t, txs, 1)
	assert.Nil(t, txs[0].Title)
	assert.Equal(t, "250.5", txs[0].Amount.String())
	assert.Equal(t, time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC), txs[0].Date.Time)
}

func TestUpdateBudgetUsesPut(t *testing.T) {
	var method, path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_, _ = w.Write([]byte(`{"id":3,"category_id":2,"month":"2024-05","limit_amount":5000}`))
	})
	b, err := c.UpdateBudget(context.Background(), 3, core.BudgetInput{CategoryID: 2, Month: core.Month{Year: 2024, Month: time.May}})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/api/budgets/3", path)
	assert.Equal(t, "2024-05", b.Month.String())
}

func TestBudgetSummaryFillsMonth(t *testing.T) {
	var month string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		month = r.URL.Query().Get("month")
		_, _ = w.Write([]byte(`[{"category_id":2,"category_name":"Hrana","limit_amount":5000,"spent":6200,"remaining":-1200}]`))
	})
	may := core.Month{Year: 2024, Month: time.May}
	rows, err := c.BudgetSummary(context.Background(), may)
	require.NoError(t, err)
	assert.Equal(t, "2024-05", month)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Month.Equal(may))
	assert.True(t, rows[0].Over())
}

func TestLoginKeepsRawUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"access_token":"abc","user":{"id":1,"email":"ana@example.com","name":"Ana","avatar":"x.png"}}`))
	})
	res, err := c.Login(context.Background(), Credentials{Email: "ana@example.com", Password: "Lozinka1"})
	require.NoError(t, err)
	assert.Equal(t, "abc", res.AccessToken)
	assert.Equal(t, "Ana", res.User.Name)
	assert.Contains(t, string(res.User.Raw), `"avatar":"x.png"`)
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New(Config{BaseURL: "localhost:8000"})
	assert.Error(t, err)
}
