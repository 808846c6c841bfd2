package attendance

import (
	"fmt"
	"testing"
)

func TestVotePolicy_MarkThreshold(t *testing.T) {
	policy := DefaultVotePolicy()
	for k := 0; k <= 5; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			l := NewLedger([]string{"alice", "bob"})
			identified := make([]string, 0, k)
			for range k {
				identified = append(identified, "alice")
			}

			policy.Mark(l, identified)

			got, _ := l.Status("alice")
			want := Absent
			if k > 3 {
				want = Present
			}
			if got != want {
				t.Errorf("alice seen %d times: status = %s, want %s", k, got.Label(), want.Label())
			}
			if st, _ := l.Status("bob"); st != Absent {
				t.Errorf("bob status = %s, want Absent", st.Label())
			}
		})
	}
}

func TestVotePolicy_IgnoresUnknownIdentities(t *testing.T) {
	l := NewLedger([]string{"alice"})
	DefaultVotePolicy().Mark(l, []string{"mallory", "mallory", "mallory", "mallory", "mallory"})

	if l.Len() != 1 {
		t.Fatalf("ledger grew to %d entries", l.Len())
	}
	if st, _ := l.Status("alice"); st != Absent {
		t.Errorf("alice status = %s, want Absent", st.Label())
	}
}

func TestVotePolicy_NeverDemotes(t *testing.T) {
	l := NewLedger([]string{"alice"})
	l.Set("alice", Present)
	DefaultVotePolicy().Mark(l, nil)

	if st, _ := l.Status("alice"); st != Present {
		t.Errorf("alice status = %s, want Present", st.Label())
	}
}

func TestNewVotePolicy_Validation(t *testing.T) {
	tests := []struct {
		passes, threshold int
		wantErr           bool
	}{
		{5, 3, false},
		{5, 0, false},
		{1, 0, false},
		{5, 5, true},
		{5, -1, true},
		{0, 0, true},
	}
	for _, tt := range tests {
		_, err := NewVotePolicy(tt.passes, tt.threshold)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewVotePolicy(%d, %d) error = %v, wantErr %v", tt.passes, tt.threshold, err, tt.wantErr)
		}
	}
}
