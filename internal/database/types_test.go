package database

import "testing"

func TestStoredSectionStudents(t *testing.T) {
	s := &StoredSection{Labels: []string{"bob", "alice", "bob", "carol", "alice"}}
	got := s.Students()
	want := []string{"bob", "alice", "carol"}
	if len(got) != len(want) {
		t.Fatalf("Students() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Students()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStoredSheetPresent(t *testing.T) {
	sheet := &StoredSheet{Records: []StoredRecord{
		{Name: "alice", Status: "P"},
		{Name: "bob", Status: "A"},
		{Name: "carol", Status: "P"},
	}}
	if got := sheet.Present(); got != 2 {
		t.Errorf("Present() = %d, want 2", got)
	}
}

func TestStoredUserHasSection(t *testing.T) {
	u := &StoredUser{Sections: []string{"CS101", "CS102"}}
	tests := []struct {
		section string
		want    bool
	}{
		{"CS101", true},
		{"CS102", true},
		{"cs101", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.section, func(t *testing.T) {
			if got := u.HasSection(tc.section); got != tc.want {
				t.Errorf("HasSection(%q) = %v, want %v", tc.section, got, tc.want)
			}
		})
	}
}
