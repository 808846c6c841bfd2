package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/kozaktomas/classroll/internal/database"
)

// UserRepository stores teacher accounts
type UserRepository struct {
	pool *Pool
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetUser retrieves a user, returns nil if not found
func (r *UserRepository) GetUser(ctx context.Context, username string) (*database.StoredUser, error) {
	var u database.StoredUser
	err := r.pool.QueryRow(ctx,
		`SELECT username, password_hash, sections, created_at FROM users WHERE username = $1`, username,
	).Scan(&u.Username, &u.PasswordHash, pq.Array(&u.Sections), &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// SaveUser creates or replaces a user
func (r *UserRepository) SaveUser(ctx context.Context, user *database.StoredUser) error {
	query := `
		INSERT INTO users (username, password_hash, sections)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			sections = EXCLUDED.sections
	`
	sections := user.Sections
	if sections == nil {
		sections = []string{}
	}
	if _, err := r.pool.Exec(ctx, query, user.Username, user.PasswordHash, pq.Array(sections)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}
