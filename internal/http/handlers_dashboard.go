package http

import (
	"net/http"
	"strings"

	"mojbudzet/internal/amqp"
	"mojbudzet/internal/apiclient"
	"mojbudzet/internal/core"
	"mojbudzet/internal/loader"
	"mojbudzet/internal/log"
	"mojbudzet/internal/session"
)

const (
	msgTransactionFailed = "Greška pri čuvanju transakcije"
	msgTransactionSaved  = "Transakcija sačuvana"
	msgCategoryFailed    = "Greška pri dodavanju kategorije"
	msgCategorySaved     = "Kategorija dodata"
)

type transactionRow struct {
	Date     core.Instant
	Title    string
	Category string
	Type     core.CategoryType
	Amount   string
	Note     string
}

type dashboardView struct {
	layout
	Data       loader.DashboardData
	Recent     []transactionRow
	Categories string
}

func (v dashboardView) Selector() selectorView {
	return selectorView{Value: v.Data.Month, Target: "/dashboard"}
}

// handleDashboard renders the dashboard for ?month. htmx requests get the
// content partial only, so switching months keeps the page shell.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)
	month := ParseMonthParam(r.URL.Query(), s.loc)

	data, err := s.loader.Dashboard(ctx, owner(st, r), month)
	if err != nil {
		s.loadFailed(w, r, err)
		return
	}

	view := dashboardView{
		layout:     s.layoutFor(w, r, "Pregled", "dashboard"),
		Data:       data,
		Recent:     s.transactionRows(data.Overview.Recent, data.Categories),
		Categories: categoryList(data.Categories),
	}
	name := "dashboard_page"
	if isHTMX(r) {
		name = "dashboard_content"
	}
	s.render(w, r, http.StatusOK, name, view)
}

func (s *Server) transactionRows(txs []core.Transaction, categories []core.Category) []transactionRow {
	names := make(map[int64]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	rows := make([]transactionRow, 0, len(txs))
	for _, t := range txs {
		name, ok := names[t.CategoryID]
		if !ok || name == "" {
			name = core.PlaceholderName
		}
		amount := core.FormatAmount(t.Amount, s.currency)
		if t.Type == core.Expense {
			amount = "-" + amount
		}
		rows = append(rows, transactionRow{
			Date:     t.Date,
			Title:    t.TitleOrEmpty(),
			Category: name,
			Type:     t.Type,
			Amount:   amount,
			Note:     t.NoteOrPlaceholder(),
		})
	}
	return rows
}

// categoryList renders the "your categories" line, e.g. "Plata (INCOME)".
func categoryList(categories []core.Category) string {
	if len(categories) == 0 {
		return core.PlaceholderName
	}
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = c.Name + " (" + string(c.Type) + ")"
	}
	return strings.Join(parts, ", ")
}

type transactionFormView struct {
	Form    core.TransactionForm
	Month   core.Month
	Options []core.Category
	OOB     bool
}

// handleTransactionForm opens the add-transaction modal. Called again with
// the form's fields when the type changes, it re-renders them with the
// category options for the new type.
func (s *Server) handleTransactionForm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	month := ParseMonthParam(q, s.loc)

	form := core.NewTransactionForm(month, s.loc)
	if q.Has("type") {
		form = ParseTransactionForm(q, month, s.loc)
	}

	categories, err := s.loader.Categories(ctx)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
		form.Err = apiclient.UserMessage(err, loader.LoadErrorMessage)
	}
	options := form.Options(categories)
	if !hasCategory(options, form.CategoryID) {
		form.CategoryID = 0
	}
	s.render(w, r, http.StatusOK, "transaction_form", transactionFormView{
		Form:    form,
		Month:   month,
		Options: options,
	})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	st := session.FromContext(ctx)
	month := ParseMonthParam(r.PostForm, s.loc)
	form := ParseTransactionForm(r.PostForm, month, s.loc)

	if !form.Begin() {
		// nothing worth sending; the form stays as it was
		s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, form, month)
		return
	}

	tx, err := s.api.CreateTransaction(ctx, form.Payload())
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
		log.FromContext(ctx).WarnContext(ctx, "Create transaction failed",
			log.FieldOperation, log.OpCreate, log.FieldErrorType, apiclient.Kind(err), log.FieldError, err.Error())
		form.Fail(apiclient.UserMessage(err, msgTransactionFailed))
		s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, form, month)
		return
	}

	form.Succeed()
	txMonth := core.MonthOf(form.Date.In(s.loc))
	s.events.LogMutation(ctx, log.OpCreate, "transaction", tx.ID, st.User.ID, txMonth.String())
	s.afterMutation(ctx, st, amqp.KindTransactionCreated, txMonth.String())

	NewHTMXResponse().
		TriggerTransactionCreated(month.String()).
		TriggerModalClose().
		TriggerSuccessNotification(msgTransactionSaved).
		BodyHTML("").
		Write(w)
}

func (s *Server) renderTransactionForm(w http.ResponseWriter, r *http.Request, status int, form core.TransactionForm, month core.Month) {
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
	s.render(w, r, status, "transaction_form", transactionFormView{
		Form:    form,
		Month:   month,
		Options: form.Options(categories),
	})
}

type categoryFormView struct {
	Form core.CategoryForm
}

// handleCategoryForm opens the nested new-category modal for ?type.
func (s *Server) handleCategoryForm(w http.ResponseWriter, r *http.Request) {
	t, _ := core.ParseCategoryType(r.URL.Query().Get("type"))
	s.render(w, r, http.StatusOK, "category_form", categoryFormView{Form: core.NewCategoryForm(t)})
}

// handleCreateCategory creates a category from the nested form. On success
// the nested modal closes and the parent form's category select is swapped
// out of band with the new category selected.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	st := session.FromContext(ctx)
	form := ParseCategoryForm(r.PostForm)

	if !form.Begin() {
		s.render(w, r, http.StatusUnprocessableEntity, "category_form", categoryFormView{Form: form})
		return
	}

	created, err := s.api.CreateCategory(ctx, form.Payload())
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			s.unauthorized(w, r)
			return
		}
		log.FromContext(ctx).WarnContext(ctx, "Create category failed",
			log.FieldOperation, log.OpCreate, log.FieldErrorType, apiclient.Kind(err), log.FieldError, err.Error())
		form.Fail(apiclient.UserMessage(err, msgCategoryFailed))
		s.render(w, r, http.StatusUnprocessableEntity, "category_form", categoryFormView{Form: form})
		return
	}

	result := form.Succeed(created)
	s.events.LogMutation(ctx, log.OpCreate, "category", created.ID, st.User.ID, "")
	s.afterMutation(ctx, st, amqp.KindCategoryCreated, "")

	parent := core.TransactionForm{Type: form.Type}
	parent.Apply(result)
	categories, err := s.loader.Categories(ctx)
	if err != nil {
		// the list could not be refreshed; offer at least the new category
		categories = []core.Category{created}
	}
	if !hasCategory(categories, created.ID) {
		categories = append(categories, created)
	}

	sel, err := s.renderString("category_select", transactionFormView{
		Form:    parent,
		Options: parent.Options(categories),
		OOB:     true,
	})
	if err != nil {
		s.events.LogError(ctx, "Template execution failed", err, "internal_error", log.OpRender, nil)
	}
	NewHTMXResponse().
		TriggerCategoryCreated(created.ID, string(created.Type)).
		TriggerSuccessNotification(msgCategorySaved).
		BodyHTML(sel).
		Write(w)
}

func hasCategory(categories []core.Category, id int64) bool {
	for _, c := range categories {
		if c.ID == id {
			return true
		}
	}
	return false
}
