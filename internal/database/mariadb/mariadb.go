// Package mariadb mirrors finalized attendance sheets into a MariaDB schema
// for schools whose reporting tools only speak MySQL.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/kozaktomas/classroll/internal/database"
)

// Pool is the mirror's connection handle. The mirror is write-mostly and
// low volume, so the pool stays small.
type Pool struct {
	db *sql.DB
}

// NewPool validates dsn and connects. DATETIME columns must scan into
// time.Time and dates are stored in UTC, so parseTime and loc are forced.
func NewPool(dsn string) (*Pool, error) {
	if dsn == "" {
		return nil, errors.New("mariadb: empty DSN")
	}
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mariadb: parse DSN: %w", err)
	}
	mc.ParseTime = true
	mc.Loc = time.UTC

	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, fmt.Errorf("mariadb: connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(15 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mariadb: ping %s: %w", mc.Addr, err)
	}
	return &Pool{db: db}, nil
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// Initialize connects, creates the mirror table when missing and registers
// the repository so every committed sheet is copied here as well.
func Initialize(ctx context.Context, dsn string) (*Pool, error) {
	pool, err := NewPool(dsn)
	if err != nil {
		return nil, err
	}
	repo := NewAttendanceRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("mariadb: ensure schema: %w", err)
	}
	database.RegisterAttendanceMirror(repo)
	return pool, nil
}
