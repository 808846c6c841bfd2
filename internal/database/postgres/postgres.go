package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/database"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Pool wraps the shared *sql.DB used by every classroll repository.
type Pool struct {
	db *sql.DB
}

// NewPool opens the database and waits for it to answer a ping. A freshly
// started compose stack often needs a few seconds before postgres accepts
// connections, so the ping is retried with a linear backoff.
func NewPool(cfg *config.DatabaseConfig) (*Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := waitForPing(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Pool{db: db}, nil
}

func waitForPing(db *sql.DB) error {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			return nil
		}
		if attempt < connectAttempts {
			slog.Warn("postgres not ready", "attempt", attempt, "error", lastErr)
			time.Sleep(time.Duration(attempt) * connectBackoff)
		}
	}
	return fmt.Errorf("ping postgres after %d attempts: %w", connectAttempts, lastErr)
}

// Close releases all pooled connections.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}
	return nil
}

// Stats exposes pool usage for logging at shutdown.
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	return res, nil
}

// withTx commits when fn returns nil and rolls back otherwise.
func (p *Pool) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback failed", "error", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Initialize opens the pool, brings the schema up to date and registers the
// postgres repositories as the storage backend for sections, sheets and users.
func Initialize(cfg *config.DatabaseConfig) (*Pool, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := pool.Migrate(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	database.RegisterPostgresBackend(
		func() database.SectionWriter { return NewSectionRepository(pool) },
		func() database.AttendanceWriter { return NewAttendanceRepository(pool) },
		func() database.UserWriter { return NewUserRepository(pool) },
	)
	return pool, nil
}
