package session

import (
	"context"
	"log/slog"
	"time"
)

// Expirer deletes sessions last saved before a cutoff.
type Expirer interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Reaper removes stored sessions whose cookie has expired. The cookie is
// issued once at login, which is also when the row was last saved, so such
// a session can never be presented again. It plugs into the cache cleanup
// loop.
type Reaper struct {
	repo    Expirer
	maxAge  time.Duration
	timeout time.Duration
	now     func() time.Time
}

func NewReaper(repo Expirer) *Reaper {
	return &Reaper{repo: repo, maxAge: cookieMaxAge, timeout: 10 * time.Second, now: time.Now}
}

// CleanExpired deletes abandoned sessions and returns how many went.
func (r *Reaper) CleanExpired() int {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	n, err := r.repo.DeleteOlderThan(ctx, r.now().Add(-r.maxAge))
	if err != nil {
		slog.Warn("Session cleanup failed", "error", err)
		return 0
	}
	if n > 0 {
		slog.Info("Abandoned sessions removed", "count", n)
	}
	return n
}
