// Package loader gathers everything a page needs from the API.
//
// Each page load fans out its reads concurrently and succeeds only when all
// of them do. A failed load falls back to the last good snapshot of the same
// page, flagged stale, so the user keeps seeing data next to the error.
// Authorization failures are never masked.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"mojbudzet/internal/apiclient"
	"mojbudzet/internal/cache"
	"mojbudzet/internal/core"
)

// LoadErrorMessage is shown when a page could not be refreshed.
const LoadErrorMessage = "Greška pri učitavanju podataka"

const (
	ViewDashboard = "dashboard"
	ViewBudgets   = "budgets"
	ViewChart     = "chart"
)

// API is the read side of the remote API used by page loads.
type API interface {
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListTransactions(ctx context.Context, from, to time.Time) ([]core.Transaction, error)
	ListBudgets(ctx context.Context) ([]core.Budget, error)
	BudgetSummary(ctx context.Context, month core.Month) ([]core.SummaryRow, error)
}

type (
	DashboardData struct {
		Month        core.Month
		Categories   []core.Category
		Transactions []core.Transaction
		Overview     core.MonthOverview
		Stale        bool
		Err          string
	}

	BudgetsData struct {
		Month      core.Month
		Categories []core.Category
		Budgets    []core.Budget
		Summary    []core.SummaryRow
		Rows       []core.SummaryRow
		Duplicates []int64
		Stale      bool
		Err        string
	}

	// Owner identifies whose data is loaded: the API user and the browser
	// session that asked. Swap marks a partial that replaces part of an open
	// page; only those loads can be superseded. A full page navigation
	// always renders.
	Owner struct {
		UserID    int64
		SessionID string
		Swap      bool
	}

	Config struct {
		Location    *time.Location
		Reconciler  *core.Reconciler
		SnapshotTTL time.Duration
		MaxEntries  int
	}

	Loader struct {
		api        API
		loc        *time.Location
		reconciler *core.Reconciler
		dashboards cache.Cache[DashboardData]
		budgets    cache.Cache[BudgetsData]
		tracker    *Tracker
	}
)

// New builds a loader. Snapshot caches are registered with m for expiry.
func New(api API, cfg Config, m *cache.Manager) *Loader {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 30 * time.Minute
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	dashboards := cache.NewLRUCache[DashboardData](cfg.MaxEntries, cfg.SnapshotTTL)
	budgets := cache.NewLRUCache[BudgetsData](cfg.MaxEntries, cfg.SnapshotTTL)
	if m != nil {
		m.Register(dashboards)
		m.Register(budgets)
	}
	return &Loader{
		api:        api,
		loc:        cfg.Location,
		reconciler: cfg.Reconciler,
		dashboards: dashboards,
		budgets:    budgets,
		tracker:    NewTracker(),
	}
}

func snapshotKey(userID int64, view string, month core.Month) string {
	return fmt.Sprintf("%d|%s|%s", userID, view, month)
}

func userPrefix(userID int64) string {
	return strconv.FormatInt(userID, 10) + "|"
}

// Invalidate drops every snapshot held for userID.
func (l *Loader) Invalidate(userID int64) int {
	prefix := userPrefix(userID)
	return l.dashboards.DeletePrefix(prefix) + l.budgets.DeletePrefix(prefix)
}

// begin starts tracking a swap load. Full page loads get a nil ticket,
// which is always current.
func (l *Loader) begin(owner Owner, view string, month core.Month) *Ticket {
	if !owner.Swap {
		return nil
	}
	return l.tracker.Begin(owner.SessionID+"|"+view, month.String())
}

// Dashboard loads categories and the month's transactions.
func (l *Loader) Dashboard(ctx context.Context, owner Owner, month core.Month) (DashboardData, error) {
	ticket := l.begin(owner, ViewDashboard, month)
	defer ticket.Done()

	from, to := month.Range(l.loc)
	var (
		categories   []core.Category
		transactions []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		categories, err = l.api.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		transactions, err = l.api.ListTransactions(gctx, from, to)
		return err
	})
	err := g.Wait()

	if apiclient.IsUnauthorized(err) {
		return DashboardData{}, err
	}
	if !ticket.Current() {
		return DashboardData{}, ErrSuperseded
	}

	key := snapshotKey(owner.UserID, ViewDashboard, month)
	if err != nil {
		slog.WarnContext(ctx, "Dashboard load failed",
			"month", month.String(), "error_type", apiclient.Kind(err), "error", err)
		data, ok := l.dashboards.Get(key)
		if !ok {
			data = DashboardData{Month: month, Overview: core.Overview(month, nil)}
		}
		data.Stale = ok
		data.Err = apiclient.UserMessage(err, LoadErrorMessage)
		return data, nil
	}

	data := DashboardData{
		Month:        month,
		Categories:   categories,
		Transactions: transactions,
		Overview:     core.Overview(month, transactions),
	}
	l.dashboards.Set(key, data)
	return data, nil
}

// Budgets loads categories, budgets and the month's summary, and reconciles
// them into table rows.
func (l *Loader) Budgets(ctx context.Context, owner Owner, month core.Month) (BudgetsData, error) {
	return l.loadBudgets(ctx, owner, month, ViewBudgets)
}

// Chart loads the same data as Budgets. It is tracked on its own so the
// chart image never supersedes the page that embeds it.
func (l *Loader) Chart(ctx context.Context, owner Owner, month core.Month) (BudgetsData, error) {
	return l.loadBudgets(ctx, owner, month, ViewChart)
}

func (l *Loader) loadBudgets(ctx context.Context, owner Owner, month core.Month, view string) (BudgetsData, error) {
	ticket := l.begin(owner, view, month)
	defer ticket.Done()

	var (
		categories []core.Category
		budgets    []core.Budget
		summary    []core.SummaryRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		categories, err = l.api.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = l.api.ListBudgets(gctx)
		return err
	})
	g.Go(func() (err error) {
		summary, err = l.api.BudgetSummary(gctx, month)
		return err
	})
	err := g.Wait()

	if apiclient.IsUnauthorized(err) {
		return BudgetsData{}, err
	}
	if !ticket.Current() {
		return BudgetsData{}, ErrSuperseded
	}

	key := snapshotKey(owner.UserID, ViewBudgets, month)
	if err != nil {
		slog.WarnContext(ctx, "Budgets load failed",
			"month", month.String(), "error_type", apiclient.Kind(err), "error", err)
		data, ok := l.budgets.Get(key)
		if !ok {
			data = BudgetsData{Month: month}
		}
		data.Stale = ok
		data.Err = apiclient.UserMessage(err, LoadErrorMessage)
		return data, nil
	}

	data := BudgetsData{
		Month:      month,
		Categories: categories,
		Budgets:    budgets,
		Summary:    summary,
		Rows:       l.reconciler.Reconcile(summary, budgets, month, core.ExpenseCategoryNames(categories)),
		Duplicates: core.DuplicateBudgets(budgets, month),
	}
	l.budgets.Set(key, data)
	return data, nil
}

// Categories fetches the category list on its own, for forms.
func (l *Loader) Categories(ctx context.Context) ([]core.Category, error) {
	cats, err := l.api.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

// Budget finds budget id among the user's budgets.
func (l *Loader) Budget(ctx context.Context, id int64) (core.Budget, []core.Category, error) {
	var (
		budgets    []core.Budget
		categories []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		budgets, err = l.api.ListBudgets(gctx)
		return err
	})
	g.Go(func() (err error) {
		categories, err = l.api.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Budget{}, nil, fmt.Errorf("load budget %d: %w", id, err)
	}
	b, ok := core.BudgetByID(budgets, id)
	if !ok {
		return core.Budget{}, categories, fmt.Errorf("budget %d: %w", id, ErrNotFound)
	}
	return b, categories, nil
}

var ErrNotFound = errors.New("not found")
