package classifier

import (
	"math/rand"
	"slices"
	"sync"

	"github.com/coder/hnsw"
)

const (
	// knnMaxNeighbors is the HNSW M parameter
	knnMaxNeighbors = 16
	// knnEfSearch is the HNSW search breadth; corpora are small so search is near exact
	knnEfSearch = 64
)

// KNN classifies by majority vote of the nearest enrolled embeddings under
// cosine distance, indexed with HNSW.
type KNN struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[int64]
	labels []int
	k      int
	n      int
}

func fitKNN(X [][]float64, y []int, numClasses, k int, seed uint64) *KNN {
	g := hnsw.NewGraph[int64]()
	g.M = knnMaxNeighbors
	g.Ml = 1.0 / float64(knnMaxNeighbors)
	g.EfSearch = knnEfSearch
	g.Distance = hnsw.CosineDistance
	g.Rng = rand.New(rand.NewSource(int64(seed)))

	for i, x := range X {
		g.Add(hnsw.MakeNode(int64(i), toFloat32(x)))
	}
	return &KNN{graph: g, labels: slices.Clone(y), k: k, n: numClasses}
}

type neighbor struct {
	class int
	dist  float32
}

func (m *KNN) neighbors(x []float64) []neighbor {
	q := toFloat32(x)

	m.mu.RLock()
	nodes := m.graph.Search(q, m.k)
	m.mu.RUnlock()

	out := make([]neighbor, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, neighbor{
			class: m.labels[node.Key],
			dist:  hnsw.CosineDistance(q, node.Value),
		})
	}
	slices.SortStableFunc(out, func(a, b neighbor) int {
		switch {
		case a.dist < b.dist:
			return -1
		case a.dist > b.dist:
			return 1
		}
		return 0
	})
	return out
}

// Predict returns the majority class among the k nearest neighbours.
// Ties go to the class whose nearest member is closest.
func (m *KNN) Predict(x []float64) int {
	nbs := m.neighbors(x)
	votes := m.votes(nbs)
	best, bestVotes := -1, -1
	for _, nb := range nbs {
		if v := votes[nb.class]; v > bestVotes {
			best, bestVotes = nb.class, v
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// PredictProba returns the vote share of each class.
func (m *KNN) PredictProba(x []float64) []float64 {
	nbs := m.neighbors(x)
	out := make([]float64, m.n)
	if len(nbs) == 0 {
		return out
	}
	for c, v := range m.votes(nbs) {
		out[c] = float64(v) / float64(len(nbs))
	}
	return out
}

// NumClasses implements Model.
func (m *KNN) NumClasses() int { return m.n }

func (m *KNN) votes(nbs []neighbor) map[int]int {
	votes := make(map[int]int, len(nbs))
	for _, nb := range nbs {
		votes[nb.class]++
	}
	return votes
}

func toFloat32(x []float64) []float32 {
	out := make([]float32, len(x))
	for i, v := range x {
		out[i] = float32(v)
	}
	return out
}
