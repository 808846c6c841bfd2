// Package classifier fits per-section face classifiers from enrolled embeddings.
package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/kozaktomas/classroll/internal/constants"
	"github.com/kozaktomas/classroll/internal/facematch"
)

var (
	// ErrInsufficientData means no usable model can be fit from the corpus.
	ErrInsufficientData = errors.New("insufficient training data")
	// ErrDimensionMismatch means an embedding does not match the model's input size.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Model is a fitted multi-class classifier over normalized embeddings.
type Model interface {
	Predict(x []float64) int
	PredictProba(x []float64) []float64
	NumClasses() int
}

// Options selects and tunes the classifier.
type Options struct {
	Kind      string  // constants.ClassifierSVM or constants.ClassifierKNN
	C         float64 // SVM inverse regularization
	Epochs    int     // SVM passes over the corpus
	Neighbors int     // KNN k
	Seed      uint64
}

// DefaultOptions returns the linear SVM configuration.
func DefaultOptions() Options {
	return Options{
		Kind:      constants.ClassifierSVM,
		C:         constants.DefaultSVMC,
		Epochs:    constants.DefaultSVMEpochs,
		Neighbors: constants.DefaultKNNNeighbors,
		Seed:      constants.DefaultEvalSeed,
	}
}

// Trained bundles a fitted model with its label encoder. It is read-only after
// Train returns and safe for concurrent use.
type Trained struct {
	model   Model
	encoder *LabelEncoder
	dim     int
	kind    string
	samples int
}

// Prediction is one classified face.
type Prediction struct {
	Label       string
	Probability float64
}

// Train fits a classifier mapping embeddings to labels.
// Every label needs at least one embedding and at least two distinct labels are
// required; fewer examples per student degrade accuracy but are accepted.
func Train(embeddings []facematch.Embedding, labels []string, opts Options) (*Trained, error) {
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings", ErrInsufficientData)
	}
	if len(embeddings) != len(labels) {
		return nil, fmt.Errorf("%w: %d embeddings but %d labels", ErrInsufficientData, len(embeddings), len(labels))
	}

	dim := len(embeddings[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrInsufficientData)
	}
	X := make([][]float64, len(embeddings))
	for i, e := range embeddings {
		if len(e) != dim {
			return nil, fmt.Errorf("%w: embedding %d has %d values, expected %d", ErrDimensionMismatch, i, len(e), dim)
		}
		if labels[i] == "" {
			return nil, fmt.Errorf("%w: embedding %d has an empty label", ErrInsufficientData, i)
		}
		x := e.Float64()
		for _, v := range x {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: embedding %d contains non-finite values", ErrInsufficientData, i)
			}
		}
		X[i] = l2Normalize(x)
	}

	encoder := FitLabels(labels)
	if encoder.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 students, got %d", ErrInsufficientData, encoder.Len())
	}
	y, err := encoder.Transform(labels)
	if err != nil {
		return nil, err
	}

	if opts.Kind == "" {
		opts.Kind = constants.ClassifierSVM
	}
	var model Model
	switch opts.Kind {
	case constants.ClassifierSVM:
		if opts.C <= 0 {
			opts.C = constants.DefaultSVMC
		}
		if opts.Epochs <= 0 {
			opts.Epochs = constants.DefaultSVMEpochs
		}
		model = fitLinearSVC(X, y, encoder.Len(), svmParams{C: opts.C, Epochs: opts.Epochs, Eta0: 0.5, Seed: opts.Seed})
	case constants.ClassifierKNN:
		if opts.Neighbors <= 0 {
			opts.Neighbors = constants.DefaultKNNNeighbors
		}
		model = fitKNN(X, y, encoder.Len(), opts.Neighbors, opts.Seed)
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", opts.Kind)
	}

	return &Trained{
		model:   model,
		encoder: encoder,
		dim:     dim,
		kind:    opts.Kind,
		samples: len(embeddings),
	}, nil
}

// Identify predicts the student shown in a face embedding.
func (t *Trained) Identify(e facematch.Embedding) (Prediction, error) {
	if len(e) != t.dim {
		return Prediction{}, fmt.Errorf("%w: got %d, model expects %d", ErrDimensionMismatch, len(e), t.dim)
	}
	x := l2Normalize(e.Float64())
	idx := t.model.Predict(x)
	label, err := t.encoder.Inverse(idx)
	if err != nil {
		return Prediction{}, err
	}
	proba := t.model.PredictProba(x)
	return Prediction{Label: label, Probability: proba[idx]}, nil
}

// Classes returns the distinct identities the model can predict, in encoder order.
func (t *Trained) Classes() []string { return t.encoder.Classes() }

// Encoder exposes the label encoder.
func (t *Trained) Encoder() *LabelEncoder { return t.encoder }

// Dim returns the embedding length the model was trained on.
func (t *Trained) Dim() int { return t.dim }

// Kind returns the classifier kind.
func (t *Trained) Kind() string { return t.kind }

// Samples returns the size of the training corpus.
func (t *Trained) Samples() int { return t.samples }
