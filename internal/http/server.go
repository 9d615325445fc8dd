package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"mojbudzet/internal/apiclient"
	"mojbudzet/internal/chart"
	"mojbudzet/internal/core"
	"mojbudzet/internal/loader"
	"mojbudzet/internal/log"
	"mojbudzet/internal/middleware/ratelimit"
	"mojbudzet/internal/middleware/security"
	"mojbudzet/internal/middleware/trace"
	"mojbudzet/internal/session"
	appweb "mojbudzet/web"
)

// API is the part of the remote API the handlers call directly. Reads for
// whole pages go through the loader.
type API interface {
	loader.API
	Login(ctx context.Context, cred apiclient.Credentials) (apiclient.AuthResult, error)
	Register(ctx context.Context, reg apiclient.Registration) (apiclient.AuthResult, error)
	CreateCategory(ctx context.Context, in core.NewCategory) (core.Category, error)
	CreateTransaction(ctx context.Context, in core.NewTransaction) (core.Transaction, error)
	CreateBudget(ctx context.Context, in core.BudgetInput) (core.Budget, error)
	UpdateBudget(ctx context.Context, id int64, in core.BudgetInput) (core.Budget, error)
	DeleteBudget(ctx context.Context, id int64) error
}

// Publisher announces that a user's data changed so other instances drop
// their snapshots. It is optional.
type Publisher interface {
	PublishDataChanged(ctx context.Context, userID int64, kind, month string) error
}

// ReadyCheck reports whether one dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Dependencies struct {
	API       API
	Sessions  *session.Store
	Loader    *loader.Loader
	Publisher Publisher

	Location       *time.Location
	Currency       string
	CookieSecure   bool
	LoginRateLimit int

	ReadyChecks map[string]ReadyCheck
	Logger      *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	api       API
	sessions  *session.Store
	loader    *loader.Loader
	publisher Publisher
	chart     chart.BudgetChart

	loc          *time.Location
	currency     string
	cookieSecure bool
	readyChecks  map[string]ReadyCheck

	detector *security.Detector
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	logger   *log.Logger
	events   *log.StructuredLogger

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires the routes, returning a
// ready-to-run server.
func NewServer(addr string, deps Dependencies) (*Server, error) {
	if deps.API == nil || deps.Sessions == nil || deps.Loader == nil {
		return nil, errors.New("http server needs an API, a session store and a loader")
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	tmpl, err := template.New("").Funcs(templateFuncs(deps.Currency, deps.Location)).
		ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector()
	s := &Server{
		templates:    tmpl,
		api:          deps.API,
		sessions:     deps.Sessions,
		loader:       deps.Loader,
		publisher:    deps.Publisher,
		chart:        chart.BudgetChart{Currency: deps.Currency},
		loc:          deps.Location,
		currency:     deps.Currency,
		cookieSecure: deps.CookieSecure,
		readyChecks:  deps.ReadyChecks,
		detector:     detector,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{Limit: deps.LoginRateLimit, Window: time.Minute}),
		tracer:       trace.NewMiddleware(detector.ExtractClientIP),
		logger:       logger,
		events:       log.NewStructuredLogger(logger),
		started:      time.Now(),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.CleanPath)
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestIDMiddleware(trace.RequestIDFromRequest))
	r.Use(s.detector.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err == nil {
		r.With(security.StaticAssetMiddleware(86400)).
			Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)
		r.Use(security.NoStore)
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, isCredentialPost, s.handleRateLimited))

		r.Get("/", s.handleHome)
		r.Get("/login", s.handleLoginPage)
		r.Post("/login", s.handleLogin)
		r.Get("/register", s.handleRegisterPage)
		r.Post("/register", s.handleRegister)
		r.Post("/logout", s.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Get("/dashboard", s.handleDashboard)
			r.Get("/budgets", s.handleBudgets)
			r.Get("/budgets/chart.svg", s.handleBudgetChart)

			r.Get("/ui/month-picker", s.handleMonthPicker)
			r.Get("/ui/transactions/new", s.handleTransactionForm)
			r.Post("/transactions", s.handleCreateTransaction)
			r.Get("/ui/categories/new", s.handleCategoryForm)
			r.Post("/categories", s.handleCreateCategory)
			r.Get("/ui/budgets/new", s.handleNewBudgetForm)
			r.Get("/ui/budgets/{id}/edit", s.handleEditBudgetForm)
			r.Post("/budgets", s.handleSaveBudget)
			r.Post("/budgets/{id}", s.handleSaveBudget)
			r.Delete("/budgets/{id}", s.handleDeleteBudget)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		redirect(w, r, "/")
	})
	return r
}

// requireAuth sends anonymous visitors to the login page.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.sessions.IsAuthenticated(session.FromContext(r.Context())) {
			redirect(w, r, "/login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isCredentialPost(r *http.Request) bool {
	return r.Method == http.MethodPost && (r.URL.Path == "/login" || r.URL.Path == "/register")
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Login rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
	page, title := "login_page", "Prijava"
	if r.URL.Path == "/register" {
		page, title = "register_page", "Registracija"
	}
	s.render(w, r, http.StatusTooManyRequests, page, authView{
		layout: s.layoutFor(w, r, title, ""),
		Err:    "Previše pokušaja. Pokušajte ponovo za minut.",
	})
}

// unauthorized finishes a request whose token the API rejected: the
// session is gone, so the browser goes back to the login page.
func (s *Server) unauthorized(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearOnUnauthorized(r.Context())
	s.sessions.ClearCookie(w)
	if r.URL.Path == "/login" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	redirect(w, r, "/login")
}

// owner identifies the signed-in user for the loader. htmx requests swap
// into an open page, so only they can lose to a newer load.
func owner(st session.State, r *http.Request) loader.Owner {
	return loader.Owner{UserID: st.User.ID, SessionID: st.ID, Swap: isHTMX(r)}
}

// afterMutation drops the user's snapshots here and tells other instances
// to do the same.
func (s *Server) afterMutation(ctx context.Context, st session.State, kind, month string) {
	s.loader.Invalidate(st.User.ID)
	if s.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.publisher.PublishDataChanged(pctx, st.User.ID, kind, month); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to publish data change",
			log.FieldKind, kind, log.FieldUserID, st.User.ID, log.FieldError, err.Error())
	}
}

// render executes a named template. Rendering into a buffer first keeps a
// half-written page from going out with a 200.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name, log.FieldError, err.Error())
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, buf.String())
}

// renderString executes a named template into a string, for fragments that
// go out through the response builder.
func (s *Server) renderString(name string, data any) (string, error) {
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.String(), nil
}

// Shutdown stops the login limiter and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
