// Package facematch holds the value types shared by the detection, embedding
// and classification stages, plus the image geometry they need.
package facematch

import "fmt"

// BoundingBox is a face rectangle in source-image pixel coordinates, origin top-left.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", b.X, b.Y, b.Width, b.Height)
}

// Embedding is a face descriptor produced by one embedding model.
// Vectors from different models are not comparable.
type Embedding []float32

// Clone returns a copy that does not share storage with e.
func (e Embedding) Clone() Embedding {
	out := make(Embedding, len(e))
	copy(out, e)
	return out
}

// Float64 widens the embedding for numeric work.
func (e Embedding) Float64() []float64 {
	out := make([]float64, len(e))
	for i, v := range e {
		out[i] = float64(v)
	}
	return out
}

// LabeledEmbedding is one training example of a section corpus.
type LabeledEmbedding struct {
	Embedding Embedding `json:"embedding"`
	Label     string    `json:"label"`
}

// Split separates labeled examples into parallel slices.
func Split(examples []LabeledEmbedding) ([]Embedding, []string) {
	embs := make([]Embedding, len(examples))
	labels := make([]string, len(examples))
	for i, ex := range examples {
		embs[i] = ex.Embedding
		labels[i] = ex.Label
	}
	return embs, labels
}
