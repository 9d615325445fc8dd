// Package session keeps the signed-in user's API token and profile between
// requests. Handlers reach the session through the request context only.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"mojbudzet/internal/core"
	"mojbudzet/internal/storage"
)

// DefaultCookieName names the session cookie when none is configured.
const DefaultCookieName = "mb_session"

// cookieMaxAge keeps the browser cookie for a year from login. The token is
// never expired here; a stored session is only dropped once no browser can
// still present its cookie.
const cookieMaxAge = 365 * 24 * time.Hour

// Repository is the durable backend for sessions.
type Repository interface {
	Save(ctx context.Context, rec storage.SessionRecord) error
	Get(ctx context.Context, id string) (storage.SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

// State is what a request knows about its session.
type State struct {
	ID    string
	Token string
	User  core.User
}

// IsAuthenticated is true iff a token is present. Token contents and expiry
// are the API's business.
func (s State) IsAuthenticated() bool {
	return s.Token != ""
}

type Options struct {
	CookieName string
	Secure     bool
}

type Store struct {
	repo   Repository
	cookie string
	secure bool
	newID  func() string
}

func NewStore(repo Repository, opts Options) *Store {
	name := opts.CookieName
	if name == "" {
		name = DefaultCookieName
	}
	return &Store{
		repo:   repo,
		cookie: name,
		secure: opts.Secure,
		newID:  func() string { return uuid.NewString() },
	}
}

// Get loads session sid. A missing session yields an unauthenticated state.
func (s *Store) Get(ctx context.Context, sid string) (State, error) {
	if sid == "" {
		return State{}, nil
	}
	rec, err := s.repo.Get(ctx, sid)
	if errors.Is(err, storage.ErrSessionNotFound) {
		return State{}, nil
	}
	if err != nil {
		return State{}, err
	}

	st := State{ID: rec.ID, Token: rec.Token}
	if len(rec.User) > 0 {
		if err := json.Unmarshal(rec.User, &st.User); err != nil {
			slog.WarnContext(ctx, "Stored user is not valid JSON, keeping token only",
				"session_id", sid, "error", err)
			st.User = core.User{}
		}
	}
	return st, nil
}

// Login stores token and user under a fresh session id and returns it.
func (s *Store) Login(ctx context.Context, token string, user core.User) (State, error) {
	raw, err := json.Marshal(user)
	if err != nil {
		return State{}, fmt.Errorf("encode user: %w", err)
	}
	st := State{ID: s.newID(), Token: token, User: user}
	if err := s.repo.Save(ctx, storage.SessionRecord{ID: st.ID, Token: token, User: raw}); err != nil {
		return State{}, err
	}
	return st, nil
}

// Logout removes session sid from storage.
func (s *Store) Logout(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	return s.repo.Delete(ctx, sid)
}

// IsAuthenticated reports whether state carries a token.
func (s *Store) IsAuthenticated(state State) bool {
	return state.IsAuthenticated()
}

// SetCookie points the browser at session st.
func (s *Store) SetCookie(w http.ResponseWriter, st State) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    st.ID,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie tells the browser to forget its session id.
func (s *Store) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

type ctxKey struct{}

// holder is shared by every goroutine serving one request, so the 401 hook
// can clear the session while a loader fan-out is still running.
type holder struct {
	mu    sync.Mutex
	state State
}

func (h *holder) get() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *holder) set(st State) {
	h.mu.Lock()
	h.state = st
	h.mu.Unlock()
}

// Middleware loads the session named by the cookie into the request
// context. Storage failures degrade to an anonymous request.
func (s *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var st State
		if c, err := r.Cookie(s.cookie); err == nil && c.Value != "" {
			loaded, err := s.Get(r.Context(), c.Value)
			if err != nil {
				slog.ErrorContext(r.Context(), "Failed to load session", "error", err)
			} else {
				st = loaded
			}
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, &holder{state: st})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithState returns a context carrying st, for code paths that run outside
// Middleware.
func WithState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, ctxKey{}, &holder{state: st})
}

// FromContext returns the request's session, or the zero State.
func FromContext(ctx context.Context) State {
	if h, ok := ctx.Value(ctxKey{}).(*holder); ok {
		return h.get()
	}
	return State{}
}

// Replace swaps the request's session, used right after login and logout.
func Replace(ctx context.Context, st State) {
	if h, ok := ctx.Value(ctxKey{}).(*holder); ok {
		h.set(st)
	}
}

// Token is an apiclient token source.
func Token(ctx context.Context) string {
	return FromContext(ctx).Token
}

// ClearOnUnauthorized drops the request's session after the API rejected
// its token. Later calls in the same request go out anonymous.
func (s *Store) ClearOnUnauthorized(ctx context.Context) {
	h, ok := ctx.Value(ctxKey{}).(*holder)
	if !ok {
		return
	}
	st := h.get()
	if st.ID == "" && st.Token == "" {
		return
	}
	h.set(State{})
	// the request context may already be cancelled by a failing fan-out
	if err := s.repo.Delete(context.WithoutCancel(ctx), st.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to clear rejected session", "session_id", st.ID, "error", err)
		return
	}
	slog.InfoContext(ctx, "Session cleared after 401", "session_id", st.ID)
}
