package database

import (
	"time"

	"github.com/kozaktomas/classroll/internal/facematch"
)

// StoredSection is the enrolled training corpus of one section.
// Version increases every time the corpus is replaced.
type StoredSection struct {
	Section    string
	Embeddings []facematch.Embedding
	Labels     []string
	Dim        int
	Version    int64
	UpdatedAt  time.Time
}

// Students returns the distinct labels of the corpus in first-seen order.
func (s *StoredSection) Students() []string {
	seen := make(map[string]struct{}, len(s.Labels))
	var out []string
	for _, l := range s.Labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// SectionSummary describes a section without loading its embeddings.
type SectionSummary struct {
	Section   string    `json:"section"`
	Students  int       `json:"students"`
	Samples   int       `json:"samples"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoredRecord is one row of a persisted attendance sheet.
type StoredRecord struct {
	SerialNo int    `json:"sl_no"`
	Name     string `json:"name"`
	RollNo   string `json:"rollno"`
	Status   string `json:"attendance"` // "P" or "A"
}

// StoredSheet is an attendance snapshot keyed by (owner, section, date).
type StoredSheet struct {
	Owner     string
	Section   string
	Date      string // YYYY-MM-DD
	Records   []StoredRecord
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Present counts records with status "P".
func (s *StoredSheet) Present() int {
	var n int
	for _, r := range s.Records {
		if r.Status == "P" {
			n++
		}
	}
	return n
}

// SheetSummary is one entry of a section's attendance history.
type SheetSummary struct {
	Section string `json:"section"`
	Date    string `json:"date"`
	Present int    `json:"present"`
	Total   int    `json:"total"`
}

// StoredUser is a teacher account.
type StoredUser struct {
	Username     string
	PasswordHash string
	Sections     []string
	CreatedAt    time.Time
}

// HasSection reports whether the teacher is assigned to section.
func (u *StoredUser) HasSection(section string) bool {
	for _, s := range u.Sections {
		if s == section {
			return true
		}
	}
	return false
}

// StoredSession is a persisted web session.
type StoredSession struct {
	ID        string
	Username  string
	CreatedAt time.Time
	ExpiresAt time.Time
}
