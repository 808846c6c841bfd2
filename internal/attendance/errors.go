package attendance

import "errors"

// Errors returned by the attendance pipeline. Callers distinguish them with
// errors.Is to render a specific message; per-box failures never surface here.
var (
	// ErrMissingSectionData means the section has no enrolled embeddings.
	ErrMissingSectionData = errors.New("section has no enrolled embeddings")
	// ErrTrainingDataInsufficient means no classifier could be fit from the corpus.
	ErrTrainingDataInsufficient = errors.New("training data insufficient")
	// ErrMalformedInput means the classroom image or a request value is unusable.
	ErrMalformedInput = errors.New("malformed input")
	// ErrRecordNotFound means no attendance sheet exists for the requested key.
	ErrRecordNotFound = errors.New("attendance record not found")
	// ErrScanTimeout means the region scan exceeded its wall-clock budget.
	ErrScanTimeout = errors.New("face scan timed out")
	// ErrEmbeddingMismatch means the face backend produces embeddings of a
	// different length than the section was enrolled with, typically after a
	// model change. The section must be re-enrolled.
	ErrEmbeddingMismatch = errors.New("embedding length does not match enrolled section")
)
