// Package mock provides in-memory implementations of database interfaces for testing.
package mock

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/facematch"
)

// MockSectionStore is an in-memory database.SectionWriter
type MockSectionStore struct {
	mu       sync.RWMutex
	sections map[string]*database.StoredSection

	// Error injection
	GetError     error
	VersionError error
	ListError    error
	SaveError    error
	DeleteError  error
}

// NewMockSectionStore creates a new mock section store
func NewMockSectionStore() *MockSectionStore {
	return &MockSectionStore{sections: make(map[string]*database.StoredSection)}
}

// GetSection returns a copy of the stored section
func (m *MockSectionStore) GetSection(ctx context.Context, section string) (*database.StoredSection, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sections[section]
	if !ok {
		return nil, nil
	}
	cp := *s
	cp.Embeddings = slices.Clone(s.Embeddings)
	cp.Labels = slices.Clone(s.Labels)
	return &cp, nil
}

// SectionVersion returns the corpus version
func (m *MockSectionStore) SectionVersion(ctx context.Context, section string) (int64, bool, error) {
	if m.VersionError != nil {
		return 0, false, m.VersionError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sections[section]
	if !ok {
		return 0, false, nil
	}
	return s.Version, true, nil
}

// ListSections returns summaries ordered by name
func (m *MockSectionStore) ListSections(ctx context.Context) ([]database.SectionSummary, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.SectionSummary, 0, len(m.sections))
	for _, s := range m.sections {
		out = append(out, database.SectionSummary{
			Section:   s.Section,
			Students:  len(s.Students()),
			Samples:   len(s.Embeddings),
			Version:   s.Version,
			UpdatedAt: s.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Section < out[j].Section })
	return out, nil
}

// SaveSection replaces the corpus and bumps the version
func (m *MockSectionStore) SaveSection(ctx context.Context, section string, embeddings []facematch.Embedding, labels []string) (int64, error) {
	if m.SaveError != nil {
		return 0, m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var version int64 = 1
	if prev, ok := m.sections[section]; ok {
		version = prev.Version + 1
	}
	dim := 0
	if len(embeddings) > 0 {
		dim = len(embeddings[0])
	}
	m.sections[section] = &database.StoredSection{
		Section:    section,
		Embeddings: slices.Clone(embeddings),
		Labels:     slices.Clone(labels),
		Dim:        dim,
		Version:    version,
		UpdatedAt:  time.Now(),
	}
	return version, nil
}

// DeleteSection removes a section
func (m *MockSectionStore) DeleteSection(ctx context.Context, section string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sections, section)
	return nil
}

type sheetKey struct {
	owner, section, date string
}

// MockAttendanceStore is an in-memory database.AttendanceWriter
type MockAttendanceStore struct {
	mu     sync.RWMutex
	sheets map[sheetKey]*database.StoredSheet

	// Error injection
	GetError    error
	ListError   error
	UpsertError error

	// UpsertCalls counts successful upserts
	UpsertCalls int
}

// NewMockAttendanceStore creates a new mock attendance store
func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{sheets: make(map[sheetKey]*database.StoredSheet)}
}

// GetSheet returns a copy of the stored sheet
func (m *MockAttendanceStore) GetSheet(ctx context.Context, owner, section, date string) (*database.StoredSheet, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sheets[sheetKey{owner, section, date}]
	if !ok {
		return nil, nil
	}
	cp := *s
	cp.Records = slices.Clone(s.Records)
	return &cp, nil
}

// ListSheets returns the owner's sheets for a section, newest first
func (m *MockAttendanceStore) ListSheets(ctx context.Context, owner, section string, limit int) ([]database.SheetSummary, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []database.SheetSummary
	for k, s := range m.sheets {
		if k.owner != owner || k.section != section {
			continue
		}
		out = append(out, database.SheetSummary{
			Section: s.Section,
			Date:    s.Date,
			Present: s.Present(),
			Total:   len(s.Records),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpsertSheet stores a copy of the sheet
func (m *MockAttendanceStore) UpsertSheet(ctx context.Context, sheet *database.StoredSheet) error {
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sheetKey{sheet.Owner, sheet.Section, sheet.Date}
	cp := *sheet
	cp.Records = slices.Clone(sheet.Records)
	now := time.Now()
	if prev, ok := m.sheets[key]; ok {
		cp.CreatedAt = prev.CreatedAt
	} else {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	m.sheets[key] = &cp
	m.UpsertCalls++
	return nil
}

// MockUserStore is an in-memory database.UserWriter
type MockUserStore struct {
	mu    sync.RWMutex
	users map[string]*database.StoredUser

	// Error injection
	GetError  error
	SaveError error
}

// NewMockUserStore creates a new mock user store
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[string]*database.StoredUser)}
}

// GetUser returns a copy of the user
func (m *MockUserStore) GetUser(ctx context.Context, username string) (*database.StoredUser, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	cp.Sections = slices.Clone(u.Sections)
	return &cp, nil
}

// SaveUser stores a copy of the user
func (m *MockUserStore) SaveUser(ctx context.Context, user *database.StoredUser) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *user
	cp.Sections = slices.Clone(user.Sections)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.users[user.Username] = &cp
	return nil
}
