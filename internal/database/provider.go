package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	postgresSectionWriter    func() SectionWriter
	postgresAttendanceWriter func() AttendanceWriter
	postgresUserWriter       func() UserWriter
	attendanceMirror         AttendanceWriter
	postgresInitialized      bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(
	sections func() SectionWriter,
	attendance func() AttendanceWriter,
	users func() UserWriter,
) {
	postgresSectionWriter = sections
	postgresAttendanceWriter = attendance
	postgresUserWriter = users
	postgresInitialized = true
}

// RegisterAttendanceMirror registers a secondary store that receives a copy of
// every attendance sheet written through GetAttendanceWriter.
func RegisterAttendanceMirror(w AttendanceWriter) {
	attendanceMirror = w
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

var errNotInitialized = errors.New("PostgreSQL backend not initialized: DATABASE_URL is required")

// GetSectionReader returns a SectionReader from the PostgreSQL backend
func GetSectionReader(ctx context.Context) (SectionReader, error) {
	return GetSectionWriter(ctx)
}

// GetSectionWriter returns a SectionWriter from the PostgreSQL backend
func GetSectionWriter(ctx context.Context) (SectionWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresSectionWriter == nil {
		return nil, fmt.Errorf("PostgreSQL section writer not registered")
	}
	return postgresSectionWriter(), nil
}

// GetAttendanceWriter returns an AttendanceWriter from the PostgreSQL backend,
// mirrored to the secondary store when one is registered.
func GetAttendanceWriter(ctx context.Context) (AttendanceWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresAttendanceWriter == nil {
		return nil, fmt.Errorf("PostgreSQL attendance writer not registered")
	}
	primary := postgresAttendanceWriter()
	if attendanceMirror == nil {
		return primary, nil
	}
	return NewMirroredAttendance(primary, attendanceMirror, slog.Default()), nil
}

// GetUserWriter returns a UserWriter from the PostgreSQL backend
func GetUserWriter(ctx context.Context) (UserWriter, error) {
	if !postgresInitialized {
		return nil, errNotInitialized
	}
	if postgresUserWriter == nil {
		return nil, fmt.Errorf("PostgreSQL user writer not registered")
	}
	return postgresUserWriter(), nil
}

// MirroredAttendance writes sheets to a primary store and copies them to a
// secondary one. Reads are served by the primary. A failing mirror is logged
// and never fails the write.
type MirroredAttendance struct {
	primary AttendanceWriter
	mirror  AttendanceWriter
	logger  *slog.Logger
}

// NewMirroredAttendance combines a primary and a mirror store.
func NewMirroredAttendance(primary, mirror AttendanceWriter, logger *slog.Logger) *MirroredAttendance {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirroredAttendance{primary: primary, mirror: mirror, logger: logger}
}

// GetSheet implements AttendanceReader.
func (m *MirroredAttendance) GetSheet(ctx context.Context, owner, section, date string) (*StoredSheet, error) {
	return m.primary.GetSheet(ctx, owner, section, date)
}

// ListSheets implements AttendanceReader.
func (m *MirroredAttendance) ListSheets(ctx context.Context, owner, section string, limit int) ([]SheetSummary, error) {
	return m.primary.ListSheets(ctx, owner, section, limit)
}

// UpsertSheet implements AttendanceWriter.
func (m *MirroredAttendance) UpsertSheet(ctx context.Context, sheet *StoredSheet) error {
	if err := m.primary.UpsertSheet(ctx, sheet); err != nil {
		return err
	}
	if err := m.mirror.UpsertSheet(ctx, sheet); err != nil {
		m.logger.Warn("attendance mirror write failed",
			"owner", sheet.Owner, "section", sheet.Section, "date", sheet.Date, "error", err)
	}
	return nil
}
