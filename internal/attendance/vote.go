package attendance

import (
	"fmt"

	"github.com/kozaktomas/classroll/internal/constants"
)

// VotePolicy decides presence from repeated detections. A student is present
// when identified strictly more than Threshold times. Passes is the scan pass
// count the threshold was tuned for; the two only make sense together.
type VotePolicy struct {
	Passes    int
	Threshold int
}

// DefaultVotePolicy is the 5-pass, more-than-3 rule.
func DefaultVotePolicy() VotePolicy {
	return VotePolicy{Passes: constants.DefaultScanPasses, Threshold: constants.DefaultPresenceThreshold}
}

// NewVotePolicy validates a passes/threshold pair.
func NewVotePolicy(passes, threshold int) (VotePolicy, error) {
	p := VotePolicy{Passes: passes, Threshold: threshold}
	return p, p.Validate()
}

// Validate rejects pairs where nobody or everybody could be marked present.
func (p VotePolicy) Validate() error {
	if p.Passes < 1 {
		return fmt.Errorf("passes must be at least 1, got %d", p.Passes)
	}
	if p.Threshold < 0 || p.Threshold >= p.Passes {
		return fmt.Errorf("presence threshold must be in [0, %d), got %d", p.Passes, p.Threshold)
	}
	return nil
}

// Mark flips ledger entries to Present for students identified more than
// Threshold times. Students below the threshold are left untouched and
// identities that are not on the roster are ignored.
func (p VotePolicy) Mark(l *Ledger, identified []string) *Ledger {
	counts := make(map[string]int, l.Len())
	for _, id := range identified {
		counts[id]++
	}
	for i := range l.entries {
		if counts[l.entries[i].Name] > p.Threshold {
			l.entries[i].Status = Present
		}
	}
	return l
}
