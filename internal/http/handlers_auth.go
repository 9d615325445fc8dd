package http

import (
	"net/http"
	"strings"

	"mojbudzet/internal/apiclient"
	"mojbudzet/internal/log"
	"mojbudzet/internal/session"
)

const (
	msgLoginFailed    = "Pogrešan email ili lozinka"
	msgRegisterFailed = "Greška pri registraciji"
	msgWelcome        = "Dobrodošao!"
	msgRegistered     = "Uspešna registracija"
)

// authView backs the login and register pages. Fields holds per-field
// validation messages.
type authView struct {
	layout
	Err    string
	Fields map[string]string
	Name   string
	Email  string
	Agree  bool
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).IsAuthenticated() {
		redirect(w, r, "/dashboard")
		return
	}
	s.render(w, r, http.StatusOK, "login_page", authView{layout: s.layoutFor(w, r, "Prijava", "login")})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	cred := ParseCredentials(r.PostForm)
	view := authView{layout: s.layoutFor(w, r, "Prijava", "login"), Email: cred.Email}

	if cred.Email == "" || cred.Password == "" {
		view.Err = msgLoginFailed
		s.render(w, r, http.StatusUnprocessableEntity, "login_page", view)
		return
	}

	res, err := s.api.Login(r.Context(), cred)
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Login failed",
			log.FieldOperation, log.OpLogin, log.FieldErrorType, apiclient.Kind(err))
		// a stale cookie must not survive a failed login either
		if apiclient.IsUnauthorized(err) {
			s.sessions.ClearCookie(w)
		}
		view.Err = apiclient.UserMessage(err, msgLoginFailed)
		s.render(w, r, http.StatusUnprocessableEntity, "login_page", view)
		return
	}

	if !s.startSession(w, r, res) {
		view.Err = msgLoginFailed
		s.render(w, r, http.StatusInternalServerError, "login_page", view)
		return
	}
	setFlash(w, msgWelcome, s.cookieSecure)
	redirect(w, r, "/dashboard")
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if session.FromContext(r.Context()).IsAuthenticated() {
		redirect(w, r, "/dashboard")
		return
	}
	s.render(w, r, http.StatusOK, "register_page", authView{layout: s.layoutFor(w, r, "Registracija", "register")})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	form := ParseRegisterForm(r.PostForm)
	view := authView{
		layout: s.layoutFor(w, r, "Registracija", "register"),
		Name:   form.Name,
		Email:  form.Email,
		Agree:  form.Agree,
	}

	if errs := form.Validate(); len(errs) > 0 {
		view.Fields = errs
		s.render(w, r, http.StatusUnprocessableEntity, "register_page", view)
		return
	}

	res, err := s.api.Register(r.Context(), apiclient.Registration{
		Email:    form.Email,
		Password: form.Password,
		Name:     strings.TrimSpace(form.Name),
	})
	if err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Registration failed",
			log.FieldOperation, log.OpRegister, log.FieldErrorType, apiclient.Kind(err))
		view.Err = apiclient.UserMessage(err, msgRegisterFailed)
		s.render(w, r, http.StatusUnprocessableEntity, "register_page", view)
		return
	}

	if !s.startSession(w, r, res) {
		view.Err = msgRegisterFailed
		s.render(w, r, http.StatusInternalServerError, "register_page", view)
		return
	}
	setFlash(w, msgRegistered, s.cookieSecure)
	redirect(w, r, "/dashboard")
}

// startSession replaces whatever session the browser had with a new one
// for res. It reports false when the session could not be stored.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, res apiclient.AuthResult) bool {
	ctx := r.Context()
	if res.AccessToken == "" {
		log.FromContext(ctx).ErrorContext(ctx, "Auth response without access token")
		return false
	}
	if old := session.FromContext(ctx); old.ID != "" {
		if err := s.sessions.Logout(ctx, old.ID); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Failed to drop previous session", log.FieldError, err.Error())
		}
	}
	st, err := s.sessions.Login(ctx, res.AccessToken, res.User)
	if err != nil {
		s.events.LogError(ctx, "Failed to store session", err, "internal_error", log.OpLogin, nil)
		return false
	}
	session.Replace(ctx, st)
	s.sessions.SetCookie(w, st)
	log.FromContext(ctx).InfoContext(ctx, "User signed in",
		log.FieldUserID, st.User.ID, log.FieldSessionID, st.ID)
	return true
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st := session.FromContext(ctx)
	if err := s.sessions.Logout(ctx, st.ID); err != nil {
		s.events.LogError(ctx, "Failed to delete session", err, "internal_error", log.OpLogout, nil)
	}
	session.Replace(ctx, session.State{})
	s.sessions.ClearCookie(w)
	redirect(w, r, "/")
}
