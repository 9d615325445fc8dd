package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mojbudzet/internal/core"
	"mojbudzet/internal/storage"
)

type memRepo struct {
	mu   sync.Mutex
	recs map[string]storage.SessionRecord
}

func newMemRepo() *memRepo {
	return &memRepo{recs: map[string]storage.SessionRecord{}}
}

func (m *memRepo) Save(_ context.Context, rec storage.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.ID] = rec
	return nil
}

func (m *memRepo) Get(_ context.Context, id string) (storage.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return storage.SessionRecord{}, storage.ErrSessionNotFound
	}
	return rec, nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, id)
	return nil
}

func TestLoginGetLogout(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	store := NewStore(repo, Options{})

	var user core.User
	require.NoError(t, json.Unmarshal([]byte(`{"id":5,"name":"Ana Anić","email":"ana@example.com","theme":"dark"}`), &user))

	st, err := store.Login(ctx, "tok", user)
	require.NoError(t, err)
	require.NotEmpty(t, st.ID)
	assert.True(t, store.IsAuthenticated(st))

	got, err := store.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, "Ana Anić", got.User.Name)
	assert.Contains(t, string(repo.recs[st.ID].User), `"theme":"dark"`)

	require.NoError(t, store.Logout(ctx, st.ID))
	got, err = store.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAuthenticated())
}

func TestCorruptUserKeepsToken(t *testing.T) {
	repo := newMemRepo()
	repo.recs["s"] = storage.SessionRecord{ID: "s", Token: "tok", User: json.RawMessage(`not json`)}
	st, err := NewStore(repo, Options{}).Get(context.Background(), "s")
	require.NoError(t, err)
	assert.True(t, st.IsAuthenticated())
	assert.Equal(t, "Korisnik", st.User.DisplayName())
}

func TestMiddlewareLoadsSession(t *testing.T) {
	repo := newMemRepo()
	repo.recs["abc"] = storage.SessionRecord{ID: "abc", Token: "tok", User: json.RawMessage(`{"id":1,"name":"Ana"}`)}
	store := NewStore(repo, Options{CookieName: "sid"})

	var seen State
	h := store.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "tok", seen.Token)
	assert.Equal(t, "Ana", seen.User.Name)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.False(t, seen.IsAuthenticated())
}

func TestClearOnUnauthorized(t *testing.T) {
	repo := newMemRepo()
	repo.recs["abc"] = storage.SessionRecord{ID: "abc", Token: "tok"}
	store := NewStore(repo, Options{})

	ctx := WithState(context.Background(), State{ID: "abc", Token: "tok"})
	assert.Equal(t, "tok", Token(ctx))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.ClearOnUnauthorized(ctx)
		}()
	}
	wg.Wait()

	assert.Empty(t, Token(ctx))
	assert.False(t, FromContext(ctx).IsAuthenticated())
	_, ok := repo.recs["abc"]
	assert.False(t, ok, "session must be removed from storage")
}

func TestCookies(t *testing.T) {
	store := NewStore(newMemRepo(), Options{CookieName: "sid", Secure: true})
	rec := httptest.NewRecorder()
	store.SetCookie(rec, State{ID: "xyz"})
	store.ClearCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	assert.Equal(t, "xyz", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, -1, cookies[1].MaxAge)
}

type expirerFunc func(ctx context.Context, cutoff time.Time) (int, error)

func (f expirerFunc) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return f(ctx, cutoff)
}

func TestReaperDropsSessionsPastCookieLifetime(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var got time.Time
	r := NewReaper(expirerFunc(func(_ context.Context, cutoff time.Time) (int, error) {
		got = cutoff
		return 3, nil
	}))
	r.now = func() time.Time { return now }

	assert.Equal(t, 3, r.CleanExpired())
	assert.True(t, got.Equal(now.Add(-cookieMaxAge)), "cutoff %v", got)

	failing := NewReaper(expirerFunc(func(context.Context, time.Time) (int, error) {
		return 0, errors.New("disk full")
	}))
	assert.Zero(t, failing.CleanExpired())
}
