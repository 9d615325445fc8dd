package http

import (
	"bytes"
	"errors"
	"net/http"

	"mojbudzet/internal/amqp"
	"mojbudzet/internal/apiclient"
	"mojbudzet/internal/chart"
	"mojbudzet/internal/core"
	"mojbudzet/internal/loader"
	"mojbudzet/internal/log"
	"mojbudzet/internal/session"
)

const (
	msgBudgetFailed  = "Greška pri čuvanju budžeta"
	msgBudgetSaved   = "Budžet sačuvan"
	msgDeleteFailed  = "Greška pri brisanju"
	msgBudgetDeleted = "Budžet obrisan"
	msgBudgetMissing = "Budžet nije pronađen"
)

// budgetRow is a reconciled row plus the budget behind it, which edit and
// delete act on. BudgetID is zero when the row has no budget this month.
type budgetRow struct {
	core.SummaryRow
	BudgetID int64
}

type budgetsView struct {
	layout
	Data       loader.BudgetsData
	Rows       []budgetRow
	Duplicates []string
}

func (v budgetsView) Selector() selectorView {
	return selectorView{Value: v.Data.Month, Target: "/budgets"}
}

func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)
	month := ParseMonthParam(r.URL.Query(), s.loc)

	data, err := s.loader.Budgets(ctx, owner(st, r), month)
	if err != nil {
		s.loadFailed(w, r, err)
		return
	}

	rows := make([]budgetRow, len(data.Rows))
	for i, row := range data.Rows {
		rows[i] = budgetRow{SummaryRow: row}
		if b, ok := core.FindBudget(data.Budgets, row.CategoryID, month); ok {
			rows[i].BudgetID = b.ID
		}
	}
	names := core.ExpenseCategoryNames(data.Categories)
	dups := make([]string, 0, len(data.Duplicates))
	for _, id := range data.Duplicates {
		name, ok := names[id]
		if !ok {
			name = core.PlaceholderName
		}
		dups = append(dups, name)
	}

	view := budgetsView{
		layout:     s.layoutFor(w, r, "Budžeti", "budgets"),
		Data:       data,
		Rows:       rows,
		Duplicates: dups,
	}
	name := "budgets_page"
	if isHTMX(r) {
		name = "budgets_content"
	}
	s.render(w, r, http.StatusOK, name, view)
}

// handleBudgetChart draws limit against spent for ?month as SVG.
func (s *Server) handleBudgetChart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)
	month := ParseMonthParam(r.URL.Query(), s.loc)

	data, err := s.loader.Chart(ctx, owner(st, r), month)
	if err != nil {
		s.loadFailed(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.chart.Render(&buf, data.Rows); err != nil {
		if errors.Is(err, chart.ErrNoData) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.events.LogError(ctx, "Chart render failed", err, "internal_error", log.OpRender,
			log.NewFields().WithMonth(month.String()))
		http.Error(w, "chart error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

type budgetFormView struct {
	Form    core.BudgetForm
	Options []core.Category
	// Month is the month the budgets page is showing.
	Month core.Month
}

// handleNewBudgetForm opens an empty editor defaulting to ?month.
func (s *Server) handleNewBudgetForm(w http.ResponseWriter, r *http.Request) {
	month := ParseMonthParam(r.URL.Query(), s.loc)
	s.renderBudgetForm(w, r, http.StatusOK, core.NewBudgetForm(month), month)
}

// handleEditBudgetForm opens the editor pre-filled from budget {id}.
func (s *Server) handleEditBudgetForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	month := ParseMonthParam(r.URL.Query(), s.loc)
	id, ok := URLParamID(r, "id")
	if !ok {
		NotFoundError(msgBudgetMissing).Write(w)
		return
	}

	b, categories, err := s.loader.Budget(ctx, id)
	switch {
	case apiclient.IsUnauthorized(err):
		s.unauthorized(w, r)
		return
	case errors.Is(err, loader.ErrNotFound):
		NewHTMXResponse().
			Status(http.StatusNotFound).
			NoSwap().
			TriggerErrorNotification(msgBudgetMissing).
			Write(w)
		return
	case err != nil:
		NewHTMXResponse().
			Status(http.StatusBadGateway).
			NoSwap().
			TriggerErrorNotification(apiclient.UserMessage(err, loader.LoadErrorMessage)).
			Write(w)
		return
	}

	form := core.EditBudgetForm(b)
	s.render(w, r, http.StatusOK, "budget_form", budgetFormView{
		Form:    form,
		Options: form.Options(categories),
		Month:   month,
	})
}

// handleSaveBudget creates a budget, or replaces budget {id} when the route
// carries one.
func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	st := session.FromContext(ctx)
	id, _ := URLParamID(r, "id")
	month := ParseMonthParam(r.URL.Query(), s.loc)
	form := ParseBudgetForm(r.PostForm, id)

	if !form.Begin() {
		s.renderBudgetForm(w, r, http.StatusUnprocessableEntity, form, month)
		return
	}

	var (
		saved core.Budget
		err   error
		op    = log.OpCreate
		kind  = amqp.KindBudgetCreated
	)
	if form.IsEdit() {
		op, kind = log.OpUpdate, amqp.KindBudgetUpdated
		saved, err = s.api.UpdateBudget(ctx, form.BudgetID, form.Payload())
	} else {
		saved, err = s.api.CreateBudget(ctx, form.Payload())
	}
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
		log.FromContext(ctx).WarnContext(ctx, "Save budget failed",
			log.FieldOperation, op, log.FieldBudgetID, form.BudgetID,
			log.FieldErrorType, apiclient.Kind(err), log.FieldError, err.Error())
		form.Fail(apiclient.UserMessage(err, msgBudgetFailed))
		s.renderBudgetForm(w, r, http.StatusUnprocessableEntity, form, month)
		return
	}

	form.Succeed()
	s.events.LogMutation(ctx, op, "budget", saved.ID, st.User.ID, form.Month.String())
	s.afterMutation(ctx, st, kind, form.Month.String())

	NewHTMXResponse().
		TriggerBudgetChanged(form.Month.String()).
		TriggerModalClose().
		TriggerSuccessNotification(msgBudgetSaved).
		BodyHTML("").
		Write(w)
}

// handleDeleteBudget removes budget {id}. Confirmation happens in the
// browser before the request is sent.
func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)
	month := ParseMonthParam(r.URL.Query(), s.loc)
	id, ok := URLParamID(r, "id")
	if !ok {
		NotFoundError(msgBudgetMissing).Write(w)
		return
	}

	if err := s.api.DeleteBudget(ctx, id); err != nil {
		if apiclient.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
		log.FromContext(ctx).WarnContext(ctx, "Delete budget failed",
			log.FieldOperation, log.OpDelete, log.FieldBudgetID, id,
			log.FieldErrorType, apiclient.Kind(err), log.FieldError, err.Error())
		NewHTMXResponse().
			Status(http.StatusUnprocessableEntity).
			NoSwap().
			TriggerErrorNotification(apiclient.UserMessage(err, msgDeleteFailed)).
			Write(w)
		return
	}

	s.events.LogMutation(ctx, log.OpDelete, "budget", id, st.User.ID, month.String())
	s.afterMutation(ctx, st, amqp.KindBudgetDeleted, month.String())

	NewHTMXResponse().
		NoSwap().
		TriggerBudgetChanged(month.String()).
		TriggerSuccessNotification(msgBudgetDeleted).
		Write(w)
}

func (s *Server) renderBudgetForm(w http.ResponseWriter, r *http.Request, status int, form core.BudgetForm, month core.Month) {
	categories, err := s.loader.Categories(r.Context())
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
		if form.Err == "" {
			form.Err = apiclient.UserMessage(err, loader.LoadErrorMessage)
		}
	}
	s.render(w, r, status, "budget_form", budgetFormView{
		Form:    form,
		Options: form.Options(categories),
		Month:   month,
	})
}
