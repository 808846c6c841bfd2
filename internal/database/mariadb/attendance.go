package mariadb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/classroll/internal/database"
)

const attendanceSchema = `
	CREATE TABLE IF NOT EXISTS attendance (
		username   VARCHAR(191) NOT NULL,
		section    VARCHAR(191) NOT NULL,
		date       DATE NOT NULL,
		records    JSON NOT NULL,
		present    INT NOT NULL,
		total      INT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (username, section, date)
	) CHARACTER SET utf8mb4`

// AttendanceRepository mirrors attendance sheets into MariaDB for reporting
// tools that read the school's MySQL-compatible warehouse.
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a MariaDB attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// EnsureSchema creates the attendance table if it is missing.
func (r *AttendanceRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.db.ExecContext(ctx, attendanceSchema); err != nil {
		return fmt.Errorf("create attendance table: %w", err)
	}
	return nil
}

// GetSheet retrieves a sheet, returns nil if not found
func (r *AttendanceRepository) GetSheet(ctx context.Context, owner, section, date string) (*database.StoredSheet, error) {
	query := `
		SELECT username, section, DATE_FORMAT(date, '%Y-%m-%d'), records, created_at, updated_at
		FROM attendance
		WHERE username = ? AND section = ? AND date = ?`

	var s database.StoredSheet
	var records []byte
	err := r.pool.db.QueryRowContext(ctx, query, owner, section, date).Scan(
		&s.Owner, &s.Section, &s.Date, &records, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	if err := json.Unmarshal(records, &s.Records); err != nil {
		return nil, fmt.Errorf("decode attendance records: %w", err)
	}
	return &s, nil
}

// ListSheets returns the owner's sheets for a section, newest date first
func (r *AttendanceRepository) ListSheets(ctx context.Context, owner, section string, limit int) ([]database.SheetSummary, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT section, DATE_FORMAT(date, '%Y-%m-%d'), present, total
		FROM attendance
		WHERE username = ? AND section = ?
		ORDER BY date DESC
		LIMIT ?`, owner, section, limit)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []database.SheetSummary
	for rows.Next() {
		var s database.SheetSummary
		if err := rows.Scan(&s.Section, &s.Date, &s.Present, &s.Total); err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}

// UpsertSheet stores a sheet, replacing the records of an existing one
func (r *AttendanceRepository) UpsertSheet(ctx context.Context, sheet *database.StoredSheet) error {
	records, err := json.Marshal(sheet.Records)
	if err != nil {
		return fmt.Errorf("encode attendance records: %w", err)
	}
	now := time.Now().UTC()
	query := `
		INSERT INTO attendance (username, section, date, records, present, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			records = VALUES(records),
			present = VALUES(present),
			total = VALUES(total),
			updated_at = VALUES(updated_at)`
	_, err = r.pool.db.ExecContext(ctx, query,
		sheet.Owner, sheet.Section, sheet.Date, records, sheet.Present(), len(sheet.Records), now, now)
	if err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}
