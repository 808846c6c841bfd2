package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/classroll/internal/database"
)

// SessionRepository keeps teacher login sessions across server restarts.
type SessionRepository struct {
	pool *Pool
}

func NewSessionRepository(pool *Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Save writes the session, replacing any row with the same id.
func (r *SessionRepository) Save(ctx context.Context, id, username string, createdAt, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions AS s (id, username, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET username = $2, created_at = $3, expires_at = $4`,
		id, username, createdAt.UTC(), expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("save session for %s: %w", username, err)
	}
	return nil
}

// Get returns nil without error when the session is unknown or has expired.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*database.StoredSession, error) {
	s := &database.StoredSession{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, created_at, expires_at
		FROM sessions
		WHERE id = $1 AND expires_at > NOW()`, sessionID).
		Scan(&s.ID, &s.Username, &s.CreatedAt, &s.ExpiresAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired purges stale sessions and reports how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}
