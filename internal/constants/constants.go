// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Region scan constants
const (
	// DefaultScanPasses is the number of randomized quadrant splits per scan.
	// It is coupled with DefaultPresenceThreshold and should only change together with it.
	DefaultScanPasses = 5

	// DefaultSplitJitter is the maximum offset in pixels of a split point from the image center
	DefaultSplitJitter = 300

	// QuadrantsPerPass is the number of sub-images a single split produces
	QuadrantsPerPass = 4

	// DefaultScanConcurrency bounds the number of detector calls in flight for one scan
	DefaultScanConcurrency = 4

	// DefaultScanTimeoutSeconds bounds the wall-clock cost of one identify call
	DefaultScanTimeoutSeconds = 120
)

// Presence voting constants
const (
	// DefaultPresenceThreshold is the number of sightings a student must exceed to be marked present
	DefaultPresenceThreshold = 3
)

// Embedding constants
const (
	// FaceInputSize is the square edge length, in pixels, expected by the embedding model
	FaceInputSize = 160

	// EmbeddingDim is the length of embeddings produced by the reference model
	EmbeddingDim = 128

	// RollNumberWidth is the zero-padded width of synthesized roll numbers
	RollNumberWidth = 3
)

// Classifier constants
const (
	// ClassifierSVM selects the one-vs-rest linear SVM
	ClassifierSVM = "svm"

	// ClassifierKNN selects the HNSW nearest-neighbour classifier
	ClassifierKNN = "knn"

	// DefaultSVMEpochs is the number of SGD passes over the training set
	DefaultSVMEpochs = 200

	// DefaultSVMC is the inverse regularization strength of the linear SVM
	DefaultSVMC = 1.0

	// DefaultKNNNeighbors is the number of neighbours that vote in the KNN classifier
	DefaultKNNNeighbors = 3

	// DefaultCacheTTLMinutes is how long a trained classifier stays cached
	DefaultCacheTTLMinutes = 30

	// DefaultEvalSeed mirrors the split seed used when evaluating a section model
	DefaultEvalSeed = 17

	// DefaultEvalTestSize is the held-out fraction used by section evaluate
	DefaultEvalTestSize = 0.25
)

// Processing constants
const (
	// WorkerPoolSize is the default number of parallel workers for enrollment
	WorkerPoolSize = 4

	// MaxUploadSize is the maximum accepted classroom image upload in bytes
	MaxUploadSize = 32 << 20

	// DateLayout is the key format of stored attendance sheets
	DateLayout = "2006-01-02"
)
