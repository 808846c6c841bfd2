// Package scanner runs a face detector over several randomized quadrant splits of
// one image. Small and distant faces that a single full-frame pass misses are
// often found once the detector sees a quarter of the frame at a time.
package scanner

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/classroll/internal/constants"
	"github.com/kozaktomas/classroll/internal/facematch"
	"github.com/kozaktomas/classroll/internal/inference"
)

// Quadrant identifies one sub-image of a pass.
type Quadrant int

const (
	TopLeft Quadrant = iota
	TopRight
	BottomLeft
	BottomRight
)

func (q Quadrant) String() string {
	switch q {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	}
	return fmt.Sprintf("quadrant(%d)", int(q))
}

// DetectionError describes a quadrant whose detector call failed. It is
// reported in Result but never aborts a scan.
type DetectionError struct {
	Pass     int
	Quadrant Quadrant
	Err      error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("pass %d %s: %v", e.Pass, e.Quadrant, e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// Result is the outcome of one scan. Boxes are in full-image coordinates
// relative to the scanned image's origin and are intentionally not
// deduplicated: the same face found in several passes appears several times.
type Result struct {
	Boxes    []facematch.BoundingBox
	Failures []DetectionError
	SubScans int
	Splits   []image.Point
	Duration time.Duration
}

// RegionScanner orchestrates a FaceDetector over randomized quadrant splits.
type RegionScanner struct {
	detector    inference.FaceDetector
	splitter    SplitPointGenerator
	passes      int
	concurrency int
	logger      *slog.Logger
}

// Option configures a RegionScanner.
type Option func(*RegionScanner)

// WithPasses sets the number of splits per scan.
func WithPasses(n int) Option {
	return func(s *RegionScanner) {
		if n > 0 {
			s.passes = n
		}
	}
}

// WithConcurrency bounds the number of detector calls in flight.
func WithConcurrency(n int) Option {
	return func(s *RegionScanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets the logger used for absorbed detection failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *RegionScanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a RegionScanner. A nil splitter uses a time-seeded RandomSplitter.
func New(detector inference.FaceDetector, splitter SplitPointGenerator, opts ...Option) *RegionScanner {
	if splitter == nil {
		splitter = NewRandomSplitter(uint64(time.Now().UnixNano()), constants.DefaultSplitJitter)
	}
	s := &RegionScanner{
		detector:    detector,
		splitter:    splitter,
		passes:      constants.DefaultScanPasses,
		concurrency: constants.DefaultScanConcurrency,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Passes returns the configured number of splits per scan.
func (s *RegionScanner) Passes() int { return s.passes }

// Scan returns all boxes found across every pass and quadrant.
func (s *RegionScanner) Scan(ctx context.Context, img image.Image) ([]facematch.BoundingBox, error) {
	res, err := s.ScanDetailed(ctx, img)
	if err != nil {
		return nil, err
	}
	return res.Boxes, nil
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

type subScan struct {
	pass     int
	quadrant Quadrant
	rect     image.Rectangle
}

type subResult struct {
	boxes []facematch.BoundingBox
	err   error
}

// ScanDetailed is Scan with per-quadrant failures and timing.
// Only an empty image or a cancelled context fail the whole scan.
func (s *RegionScanner) ScanDetailed(ctx context.Context, img image.Image) (*Result, error) {
	start := time.Now()
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, facematch.ErrEmptyImage
	}

	si, ok := img.(subImager)
	if !ok {
		rgba, err := facematch.ToRGBA(img)
		if err != nil {
			return nil, err
		}
		si, bounds = rgba, rgba.Bounds()
	}

	// Split points are drawn up front so a seeded splitter yields the same
	// layout regardless of goroutine scheduling.
	res := &Result{Splits: make([]image.Point, 0, s.passes)}
	var scans []subScan
	for pass := range s.passes {
		p := s.splitter.Next(bounds)
		res.Splits = append(res.Splits, p)
		for q, r := range quadrants(bounds, p) {
			if r.Empty() {
				continue
			}
			scans = append(scans, subScan{pass: pass, quadrant: Quadrant(q), rect: r})
		}
	}

	results := make([]subResult, len(scans))
	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, sc := range scans {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].err = err
				return nil
			}
			sub := si.SubImage(sc.rect)
			boxes, err := s.detector.Detect(ctx, sub)
			if err != nil {
				results[i].err = err
				return nil
			}
			// Detector boxes are relative to the quadrant's origin.
			off := sc.rect.Min.Sub(bounds.Min)
			for _, b := range boxes {
				results[i].boxes = append(results[i].boxes, b.Offset(off.X, off.Y).Normalize())
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan aborted after %s: %w", time.Since(start).Round(time.Millisecond), err)
	}

	for i, r := range results {
		if r.err != nil {
			de := DetectionError{Pass: scans[i].pass, Quadrant: scans[i].quadrant, Err: r.err}
			res.Failures = append(res.Failures, de)
			s.logger.Debug("quadrant detection failed", "pass", de.Pass, "quadrant", de.Quadrant.String(), "error", r.err)
			continue
		}
		res.Boxes = append(res.Boxes, r.boxes...)
	}
	res.SubScans = len(scans)
	res.Duration = time.Since(start)
	return res, nil
}

// quadrants returns the four sub-rectangles of bounds cut at p, in
// top-left, top-right, bottom-left, bottom-right order.
func quadrants(bounds image.Rectangle, p image.Point) [constants.QuadrantsPerPass]image.Rectangle {
	return [constants.QuadrantsPerPass]image.Rectangle{
		image.Rect(bounds.Min.X, bounds.Min.Y, p.X, p.Y),
		image.Rect(p.X, bounds.Min.Y, bounds.Max.X, p.Y),
		image.Rect(bounds.Min.X, p.Y, p.X, bounds.Max.Y),
		image.Rect(p.X, p.Y, bounds.Max.X, bounds.Max.Y),
	}
}
