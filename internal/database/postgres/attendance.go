package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kozaktomas/classroll/internal/database"
)

// AttendanceRepository stores attendance sheets as JSONB snapshots
type AttendanceRepository struct {
	pool *Pool
}

// NewAttendanceRepository creates a new PostgreSQL attendance repository
func NewAttendanceRepository(pool *Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// GetSheet retrieves a sheet, returns nil if not found
func (r *AttendanceRepository) GetSheet(ctx context.Context, owner, section, date string) (*database.StoredSheet, error) {
	query := `
		SELECT username, section, to_char(date, 'YYYY-MM-DD'), records, created_at, updated_at
		FROM attendance
		WHERE username = $1 AND section = $2 AND date = $3::date
	`
	var s database.StoredSheet
	var records []byte
	err := r.pool.QueryRow(ctx, query, owner, section, date).Scan(
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
	query := `
		SELECT section, to_char(date, 'YYYY-MM-DD'),
		       (SELECT COUNT(*) FROM jsonb_array_elements(records) rec WHERE rec->>'attendance' = 'P'),
		       jsonb_array_length(records)
		FROM attendance
		WHERE username = $1 AND section = $2
		ORDER BY date DESC
		LIMIT $3
	`
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.pool.Query(ctx, query, owner, section, limit)
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
	query := `
		INSERT INTO attendance (username, section, date, records, created_at, updated_at)
		VALUES ($1, $2, $3::date, $4, NOW(), NOW())
		ON CONFLICT (username, section, date) DO UPDATE SET
			records = EXCLUDED.records,
			updated_at = NOW()
	`
	if _, err := r.pool.Exec(ctx, query, sheet.Owner, sheet.Section, sheet.Date, records); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}
