package database

import (
	"context"

	"github.com/kozaktomas/classroll/internal/facematch"
)

// SectionReader provides read-only access to enrolled section corpora
type SectionReader interface {
	// GetSection loads a section's embeddings and labels, returns nil if not found
	GetSection(ctx context.Context, section string) (*StoredSection, error)
	// SectionVersion returns the corpus version without loading embeddings
	SectionVersion(ctx context.Context, section string) (version int64, found bool, err error)
	// ListSections returns summaries of all enrolled sections ordered by name
	ListSections(ctx context.Context) ([]SectionSummary, error)
}

// SectionWriter provides write access to section corpora
type SectionWriter interface {
	SectionReader

	// SaveSection replaces the corpus of a section (upsert) and returns the new version
	SaveSection(ctx context.Context, section string, embeddings []facematch.Embedding, labels []string) (int64, error)
	// DeleteSection removes a section and its embeddings
	DeleteSection(ctx context.Context, section string) error
}

// AttendanceReader provides read-only access to attendance sheets
type AttendanceReader interface {
	// GetSheet retrieves a sheet, returns nil if not found
	GetSheet(ctx context.Context, owner, section, date string) (*StoredSheet, error)
	// ListSheets returns the owner's sheets for a section, newest date first
	ListSheets(ctx context.Context, owner, section string, limit int) ([]SheetSummary, error)
}

// AttendanceWriter provides write access to attendance sheets
type AttendanceWriter interface {
	AttendanceReader

	// UpsertSheet stores a sheet, replacing any sheet with the same key
	UpsertSheet(ctx context.Context, sheet *StoredSheet) error
}

// UserReader provides read-only access to teacher accounts
type UserReader interface {
	// GetUser retrieves a user, returns nil if not found
	GetUser(ctx context.Context, username string) (*StoredUser, error)
}

// UserWriter provides write access to teacher accounts
type UserWriter interface {
	UserReader

	// SaveUser creates or replaces a user and their section assignments
	SaveUser(ctx context.Context, user *StoredUser) error
}
