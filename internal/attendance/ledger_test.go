package attendance

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLedger_SortedAllAbsent(t *testing.T) {
	l := NewLedger([]string{"carol", "alice", "bob", "alice"})

	require.Equal(t, 3, l.Len())
	assert.Equal(t, []Entry{
		{Name: "alice", Status: Absent},
		{Name: "bob", Status: Absent},
		{Name: "carol", Status: Absent},
	}, l.Entries())
}

func TestNewLedger_DoesNotMutateInput(t *testing.T) {
	in := []string{"zoe", "adam"}
	NewLedger(in)
	assert.Equal(t, []string{"zoe", "adam"}, in)
}

func TestLedger_Set(t *testing.T) {
	l := NewLedger([]string{"alice", "bob"})

	assert.True(t, l.Set("bob", Present))
	assert.False(t, l.Set("mallory", Present))

	st, ok := l.Status("bob")
	require.True(t, ok)
	assert.Equal(t, Present, st)

	_, ok = l.Status("mallory")
	assert.False(t, ok)
}

func TestFormat_SerialAndRollNumbers(t *testing.T) {
	names := make([]string, 12)
	for i := range names {
		names[i] = fmt.Sprintf("student_%02d", i)
	}
	records := Format(NewLedger(names))

	require.Len(t, records, 12)
	for i, r := range records {
		assert.Equal(t, i+1, r.SerialNo)
		assert.Equal(t, fmt.Sprintf("%03d", i+1), r.RollNo)
		assert.Equal(t, names[i], r.Name)
		assert.Equal(t, Absent, r.Status)
	}
	assert.Equal(t, "001", records[0].RollNo)
	assert.Equal(t, "012", records[11].RollNo)
}

func TestFormat_Idempotent(t *testing.T) {
	l := NewLedger([]string{"bob", "alice", "carol"})
	l.Set("bob", Present)

	first := Format(l)
	second := Format(l)
	assert.Equal(t, first, second)

	// Format must not hand out the ledger's storage.
	first[0].Status = Present
	st, _ := l.Status("alice")
	assert.Equal(t, Absent, st)
}

// Roll numbers are positional. Adding a student that sorts earlier shifts
// everybody after it; this pins that behavior.
func TestFormat_RollNumberIsPositional(t *testing.T) {
	before := Format(NewLedger([]string{"bob", "carol"}))
	after := Format(NewLedger([]string{"bob", "carol", "alice"}))

	assert.Equal(t, "001", before[0].RollNo)
	assert.Equal(t, "bob", before[0].Name)

	assert.Equal(t, "002", after[1].RollNo)
	assert.Equal(t, "bob", after[1].Name)
}

func TestRollNumber_WidthOverflow(t *testing.T) {
	assert.Equal(t, "999", RollNumber(999))
	assert.Equal(t, "1000", RollNumber(1000))
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"P", Present, false},
		{"present", Present, false},
		{"A", Absent, false},
		{"Absent", Absent, false},
		{"", "", true},
		{"X", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatus_Label(t *testing.T) {
	assert.Equal(t, "Present", Present.Label())
	assert.Equal(t, "Absent", Absent.Label())
}
