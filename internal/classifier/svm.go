package classifier

import (
	"math"
	"math/rand/v2"
)

// LinearSVC is a one-vs-rest linear support vector classifier trained by
// stochastic subgradient descent on the L2-regularized hinge loss.
type LinearSVC struct {
	W [][]float64 // one weight vector per class
	B []float64
}

type svmParams struct {
	C      float64
	Epochs int
	Eta0   float64
	Seed   uint64
}

// fitLinearSVC trains one binary separator per class. Positive and negative
// examples are reweighted to equal total mass so small classes are not drowned
// out by the rest of the roster.
func fitLinearSVC(X [][]float64, y []int, numClasses int, p svmParams) *LinearSVC {
	n := len(X)
	dim := len(X[0])
	lambda := 1.0 / (p.C * float64(n))

	m := &LinearSVC{
		W: make([][]float64, numClasses),
		B: make([]float64, numClasses),
	}

	for c := range numClasses {
		var pos int
		for _, yi := range y {
			if yi == c {
				pos++
			}
		}
		neg := n - pos
		wPos, wNeg := 1.0, 1.0
		if pos > 0 && neg > 0 {
			wPos = float64(n) / (2 * float64(pos))
			wNeg = float64(n) / (2 * float64(neg))
		}

		w := make([]float64, dim)
		var b float64
		rng := rand.New(rand.NewPCG(p.Seed, uint64(c)))
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}

		t := 0
		for range p.Epochs {
			rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
			for _, i := range order {
				t++
				eta := p.Eta0 / (1 + p.Eta0*lambda*float64(t))
				target, weight := -1.0, wNeg
				if y[i] == c {
					target, weight = 1.0, wPos
				}
				margin := target * (dot(w, X[i]) + b)

				shrink := 1 - eta*lambda
				for d := range w {
					w[d] *= shrink
				}
				if margin < 1 {
					step := eta * weight * target
					for d, v := range X[i] {
						w[d] += step * v
					}
					b += step
				}
			}
		}
		m.W[c] = w
		m.B[c] = b
	}
	return m
}

// Decision returns the signed distance of x to each class separator.
func (m *LinearSVC) Decision(x []float64) []float64 {
	out := make([]float64, len(m.W))
	for c, w := range m.W {
		out[c] = dot(w, x) + m.B[c]
	}
	return out
}

// Predict returns the class with the highest decision value.
func (m *LinearSVC) Predict(x []float64) int {
	return argmax(m.Decision(x))
}

// PredictProba turns decision values into a distribution with a softmax.
func (m *LinearSVC) PredictProba(x []float64) []float64 {
	return softmax(m.Decision(x))
}

// NumClasses implements Model.
func (m *LinearSVC) NumClasses() int { return len(m.W) }

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

func softmax(v []float64) []float64 {
	out := make([]float64, len(v))
	if len(v) == 0 {
		return out
	}
	peak := v[argmax(v)]
	var sum float64
	for i, x := range v {
		out[i] = math.Exp(x - peak)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// l2Normalize returns x scaled to unit length. Zero vectors are returned unchanged.
func l2Normalize(x []float64) []float64 {
	var norm float64
	for _, v := range x {
		norm += v * v
	}
	if norm == 0 {
		return x
	}
	norm = math.Sqrt(norm)
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v / norm
	}
	return out
}
