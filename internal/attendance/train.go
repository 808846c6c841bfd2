package attendance

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/classroll/internal/classifier"
	"github.com/kozaktomas/classroll/internal/facematch"
)

// Train fits a classifier for a section corpus and returns it together with
// a fresh all-Absent ledger of the section's students.
func Train(embeddings []facematch.Embedding, labels []string, opts classifier.Options) (*classifier.Trained, *Ledger, error) {
	t, err := classifier.Train(embeddings, labels, opts)
	if err != nil {
		if errors.Is(err, classifier.ErrInsufficientData) || errors.Is(err, classifier.ErrDimensionMismatch) {
			return nil, nil, fmt.Errorf("%w: %w", ErrTrainingDataInsufficient, err)
		}
		return nil, nil, err
	}
	return t, NewLedger(labels), nil
}
