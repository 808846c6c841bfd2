package scanner

import (
	"image"
	"math/rand/v2"
	"sync"
)

// SplitPointGenerator picks the point at which one pass cuts the image into quadrants.
// The returned point is in the same coordinate space as bounds.
type SplitPointGenerator interface {
	Next(bounds image.Rectangle) image.Point
}

// RandomSplitter jitters the split point uniformly within ±Jitter pixels of the
// image center on both axes. The point is clamped to bounds, so on small images
// a pass may produce fewer than four quadrants.
type RandomSplitter struct {
	mu     sync.Mutex
	rng    *rand.Rand
	jitter int
}

// NewRandomSplitter returns a splitter seeded with seed. Equal seeds give equal sequences.
func NewRandomSplitter(seed uint64, jitter int) *RandomSplitter {
	if jitter < 0 {
		jitter = 0
	}
	return &RandomSplitter{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		jitter: jitter,
	}
}

// Next implements SplitPointGenerator.
func (s *RandomSplitter) Next(bounds image.Rectangle) image.Point {
	s.mu.Lock()
	dx := s.offset()
	dy := s.offset()
	s.mu.Unlock()

	c := center(bounds)
	return clamp(image.Pt(c.X+dx, c.Y+dy), bounds)
}

// offset returns a value in [-jitter, jitter]. Caller holds mu.
func (s *RandomSplitter) offset() int {
	if s.jitter == 0 {
		return 0
	}
	return s.rng.IntN(2*s.jitter+1) - s.jitter
}

// FixedSplitter replays a fixed list of offsets from the image center, cycling
// when exhausted. Tests use it to pin the quadrant layout.
type FixedSplitter struct {
	mu      sync.Mutex
	offsets []image.Point
	next    int
}

// NewFixedSplitter returns a splitter cycling through offsets. With no offsets
// every pass splits at the exact center.
func NewFixedSplitter(offsets ...image.Point) *FixedSplitter {
	return &FixedSplitter{offsets: offsets}
}

// Next implements SplitPointGenerator.
func (s *FixedSplitter) Next(bounds image.Rectangle) image.Point {
	var off image.Point
	s.mu.Lock()
	if len(s.offsets) > 0 {
		off = s.offsets[s.next%len(s.offsets)]
		s.next++
	}
	s.mu.Unlock()
	return clamp(center(bounds).Add(off), bounds)
}

func center(r image.Rectangle) image.Point {
	return image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
}

func clamp(p image.Point, r image.Rectangle) image.Point {
	p.X = min(max(p.X, r.Min.X), r.Max.X)
	p.Y = min(max(p.Y, r.Min.Y), r.Max.Y)
	return p
}
