// Package storage persists browser sessions in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRecord is one stored session: the API token and an opaque JSON copy
// of the signed-in user.
type SessionRecord struct {
	ID        string
	Token     string
	User      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSessionRepository opens (creating if needed) the database at dbPath and
// migrates it.
func NewSessionRepository(dbPath string) (*SessionRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent logins
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("Session store ready", "path", dbPath, "schema_version", version)

	return &SessionRepository{db: db, now: time.Now}, nil
}

func (r *SessionRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save inserts or replaces the session with rec.ID.
func (r *SessionRepository) Save(ctx context.Context, rec SessionRecord) error {
	if rec.ID == "" {
		return errors.New("save session: empty id")
	}
	user := rec.User
	if len(user) == 0 {
		user = json.RawMessage("{}")
	}
	now := r.now().UnixMilli()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, token, user_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_json = excluded.user_json,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Token, string(user), now, now)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get loads the session with id, or ErrSessionNotFound.
func (r *SessionRepository) Get(ctx context.Context, id string) (SessionRecord, error) {
	var (
		rec              SessionRecord
		user             string
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, user_json, created_at, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Token, &user, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session: %w", err)
	}
	rec.User = json.RawMessage(user)
	rec.CreatedAt = time.UnixMilli(created)
	rec.UpdatedAt = time.UnixMilli(updated)
	return rec, nil
}

// Delete removes the session with id. Deleting a missing session is not an
// error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteOlderThan removes sessions last saved before cutoff and returns how
// many went.
func (r *SessionRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("delete old sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete old sessions: %w", err)
	}
	return int(n), nil
}

// Count returns how many sessions are stored.
func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return n, nil
}
