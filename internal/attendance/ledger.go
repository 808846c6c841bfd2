package attendance

import (
	"fmt"
	"slices"

	"github.com/kozaktomas/classroll/internal/constants"
)

// Status is the attendance state of one student, stored as "P" or "A".
type Status string

const (
	Absent  Status = "A"
	Present Status = "P"
)

// ParseStatus accepts the stored single-letter form or the long form.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "P", "p", "Present", "present":
		return Present, nil
	case "A", "a", "Absent", "absent":
		return Absent, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrMalformedInput, s)
}

// Label returns the human readable status.
func (s Status) Label() string {
	if s == Present {
		return "Present"
	}
	return "Absent"
}

// Entry is one student of a ledger.
type Entry struct {
	Name   string
	Status Status
}

// Ledger maps students to a status in alphabetical order. It is created per
// attendance session and is not safe for concurrent mutation.
type Ledger struct {
	entries []Entry
	index   map[string]int
}

// NewLedger creates an all-Absent ledger over the distinct identities, sorted
// alphabetically. The order is independent of any label encoder.
func NewLedger(identities []string) *Ledger {
	names := slices.Clone(identities)
	slices.Sort(names)
	names = slices.Compact(names)

	l := &Ledger{
		entries: make([]Entry, len(names)),
		index:   make(map[string]int, len(names)),
	}
	for i, n := range names {
		l.entries[i] = Entry{Name: n, Status: Absent}
		l.index[n] = i
	}
	return l
}

// Len returns the number of students.
func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of the ledger in order.
func (l *Ledger) Entries() []Entry { return slices.Clone(l.entries) }

// Status returns a student's status.
func (l *Ledger) Status(name string) (Status, bool) {
	i, ok := l.index[name]
	if !ok {
		return "", false
	}
	return l.entries[i].Status, true
}

// Set changes a student's status; unknown students are ignored.
func (l *Ledger) Set(name string, s Status) bool {
	i, ok := l.index[name]
	if !ok {
		return false
	}
	l.entries[i].Status = s
	return true
}

// Record is one row of a formatted attendance sheet.
type Record struct {
	SerialNo int    `json:"sl_no"`
	Name     string `json:"name"`
	RollNo   string `json:"rollno"`
	Status   Status `json:"attendance"`
}

// RollNumber returns the zero-padded roll number of a 1-based ledger position.
// It is positional: it changes when the roster changes between sessions.
func RollNumber(serial int) string {
	return fmt.Sprintf("%0*d", constants.RollNumberWidth, serial)
}

// Format converts a ledger into sheet rows in ledger order. It does not
// mutate the ledger.
func Format(l *Ledger) []Record {
	out := make([]Record, len(l.entries))
	for i, e := range l.entries {
		out[i] = Record{
			SerialNo: i + 1,
			Name:     e.Name,
			RollNo:   RollNumber(i + 1),
			Status:   e.Status,
		}
	}
	return out
}
