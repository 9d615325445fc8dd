package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"mojbudzet/internal/apiclient"
	"mojbudzet/internal/core"
	"mojbudzet/internal/loader"
	"mojbudzet/internal/log"
	"mojbudzet/internal/session"
)

// layout carries what every full page shows around its content.
type layout struct {
	Title  string
	Nav    string
	User   core.User
	Authed bool
	Flash  string
}

func (s *Server) layoutFor(w http.ResponseWriter, r *http.Request, title, nav string) layout {
	st := session.FromContext(r.Context())
	return layout{
		Title:  title,
		Nav:    nav,
		User:   st.User,
		Authed: st.IsAuthenticated(),
		Flash:  popFlash(w, r),
	}
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady runs every registered dependency check.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any, len(s.readyChecks)+2)

	checks["templates"] = "ok"
	for name, check := range s.readyChecks {
		if err := check(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"rejected":       s.limiter.Rejected(),
	}
	m := s.tracer.GetMetrics()
	checks["requests"] = map[string]any{
		"total":         m.TotalRequests,
		"server_errors": m.ServerErrors,
		"suspicious":    s.detector.SuspiciousRequests(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home_page", s.layoutFor(w, r, "Moj Budžet", "home"))
}

// selectorView is the closed month selector on a page.
type selectorView struct {
	Value  core.Month
	Target string
}

type pickerView struct {
	Picker   core.MonthPicker
	Cells    []core.MonthCell
	Target   string
	This     core.Month
	PrevYear int
	NextYear int
}

// pickerTargets are the pages a picked month may navigate to.
var pickerTargets = map[string]bool{"/dashboard": true, "/budgets": true}

// handleMonthPicker renders the month grid popover. value is the selected
// month and year the browsed year; changing value resets the browse year.
func (s *Server) handleMonthPicker(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, _ := strconv.Atoi(q.Get("year"))
	picker := core.NewMonthPicker(q.Get("value"), year, s.loc)

	target := q.Get("target")
	if !pickerTargets[target] {
		target = "/dashboard"
	}
	s.render(w, r, http.StatusOK, "month_picker", pickerView{
		Picker:   picker,
		Cells:    picker.Cells(),
		Target:   target,
		This:     picker.ThisMonth(),
		PrevYear: picker.PrevYear().BrowseYear,
		NextYear: picker.NextYear().BrowseYear,
	})
}

// loadFailed handles what is left after the loader fell back: a rejected
// token or a load that lost to a newer one.
func (s *Server) loadFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apiclient.IsUnauthorized(err):
		s.unauthorized(w, r)
	case errors.Is(err, loader.ErrSuperseded):
		Superseded().Write(w)
	default:
		s.events.LogError(r.Context(), "Page load failed", err, apiclient.Kind(err), log.OpLoad, nil)
		InternalServerError(loader.LoadErrorMessage).Write(w)
	}
}
