package classifier

import (
	"fmt"
	"math/rand/v2"

	"github.com/kozaktomas/classroll/internal/facematch"
)

// Split is a shuffled train/test partition of a labeled corpus.
type Split struct {
	TrainX []facematch.Embedding
	TrainY []string
	TestX  []facematch.Embedding
	TestY  []string
}

// TrainTestSplit shuffles the corpus with seed and holds out testSize of it.
// At least one example ends up on each side when the corpus has two or more.
func TrainTestSplit(embeddings []facematch.Embedding, labels []string, testSize float64, seed uint64) (*Split, error) {
	n := len(embeddings)
	if n != len(labels) {
		return nil, fmt.Errorf("%d embeddings but %d labels", n, len(labels))
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, fmt.Errorf("test size must be in (0,1), got %v", testSize)
	}
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least 2 examples to split", ErrInsufficientData)
	}

	nTest := int(float64(n)*testSize + 0.999999)
	nTest = min(max(nTest, 1), n-1)

	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(n)

	s := &Split{}
	for i, idx := range perm {
		if i < nTest {
			s.TestX = append(s.TestX, embeddings[idx])
			s.TestY = append(s.TestY, labels[idx])
			continue
		}
		s.TrainX = append(s.TrainX, embeddings[idx])
		s.TrainY = append(s.TrainY, labels[idx])
	}
	return s, nil
}

// Accuracy returns the fraction of examples t labels correctly. Labels the
// model has never seen count as misses.
func Accuracy(t *Trained, embeddings []facematch.Embedding, labels []string) (float64, error) {
	if len(embeddings) == 0 {
		return 0, nil
	}
	var correct int
	for i, e := range embeddings {
		p, err := t.Identify(e)
		if err != nil {
			return 0, err
		}
		if p.Label == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(embeddings)), nil
}

// SyntheticCorpus generates samples embeddings of length dim spread over
// classes students named Student_0..Student_{classes-1}, assigned round robin.
// Each student's embeddings scatter around a random centroid with the given
// noise, so a working classifier separates them.
func SyntheticCorpus(samples, dim, classes int, noise float64, seed uint64) ([]facematch.Embedding, []string) {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	centroids := make([][]float64, classes)
	for c := range centroids {
		centroids[c] = make([]float64, dim)
		for d := range dim {
			centroids[c][d] = rng.Float64()*2 - 1
		}
	}

	embs := make([]facematch.Embedding, samples)
	labels := make([]string, samples)
	for i := range samples {
		c := i % classes
		e := make(facematch.Embedding, dim)
		for d := range dim {
			e[d] = float32(centroids[c][d] + rng.NormFloat64()*noise)
		}
		embs[i] = e
		labels[i] = fmt.Sprintf("Student_%d", c)
	}
	return embs, labels
}
