package attendance

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/classroll/internal/classifier"
	"github.com/kozaktomas/classroll/internal/constants"
	"github.com/kozaktomas/classroll/internal/facematch"
	"github.com/kozaktomas/classroll/internal/inference"
	"github.com/kozaktomas/classroll/internal/metrics"
	"github.com/kozaktomas/classroll/internal/scanner"
)

// Box failure stages.
const (
	StageCrop     = "crop"
	StageEmbed    = "embed"
	StageClassify = "classify"
)

// BoxError describes one detected box that could not be classified. The box
// is excluded from the vote; the session continues.
type BoxError struct {
	Box   facematch.BoundingBox
	Stage string
	Err   error
}

func (e *BoxError) Error() string {
	return fmt.Sprintf("%s box %s: %v", e.Stage, e.Box, e.Err)
}

func (e *BoxError) Unwrap() error { return e.Err }

// Identification is the detailed outcome of one Identify call.
type Identification struct {
	Identities   []string // sorted, one per classified box
	Boxes        int
	Failures     []BoxError
	ScanFailures int
	SubScans     int
	Duration     time.Duration
}

// Matcher turns a classroom image into the multiset of recognized students.
type Matcher struct {
	scanner     *scanner.RegionScanner
	embedder    inference.EmbeddingExtractor
	faceSize    int
	concurrency int
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// NewMatcher creates a Matcher. faceSize is the embedder's square input size.
func NewMatcher(sc *scanner.RegionScanner, embedder inference.EmbeddingExtractor, faceSize int, m *metrics.Metrics, logger *slog.Logger) *Matcher {
	if faceSize <= 0 {
		faceSize = constants.FaceInputSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{
		scanner:     sc,
		embedder:    embedder,
		faceSize:    faceSize,
		concurrency: constants.WorkerPoolSize,
		metrics:     m,
		logger:      logger,
	}
}

// Passes returns the scanner's pass count.
func (m *Matcher) Passes() int { return m.scanner.Passes() }

// Identify returns one identity per detected and classified face, sorted.
func (m *Matcher) Identify(ctx context.Context, img image.Image, clf *classifier.Trained) ([]string, error) {
	res, err := m.IdentifyDetailed(ctx, img, clf)
	if err != nil {
		return nil, err
	}
	return res.Identities, nil
}

// IdentifyDetailed is Identify with per-box failures and scan statistics.
func (m *Matcher) IdentifyDetailed(ctx context.Context, img image.Image, clf *classifier.Trained) (*Identification, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, facematch.ErrEmptyImage)
	}

	// Crops are taken from one RGBA copy so every box sees the same color model.
	rgba, err := facematch.ToRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	scan, err := m.scanner.ScanDetailed(ctx, rgba)
	if err != nil {
		return nil, err
	}
	m.metrics.ObserveScan(scan.Duration, scan.SubScans, len(scan.Boxes), len(scan.Failures))

	type boxResult struct {
		label string
		fail  *BoxError
	}
	results := make([]boxResult, len(scan.Boxes))

	// A length mismatch affects every box alike, so it aborts the session
	// rather than being absorbed as a per-box failure.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, box := range scan.Boxes {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			label, stage, err := m.classifyBox(gctx, rgba, box, clf)
			if errors.Is(err, ErrEmbeddingMismatch) {
				return err
			}
			if err != nil {
				results[i].fail = &BoxError{Box: box, Stage: stage, Err: err}
				return nil
			}
			results[i].label = label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Error("embedding backend incompatible with section", "error", err)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Identification{
		Boxes:        len(scan.Boxes),
		ScanFailures: len(scan.Failures),
		SubScans:     scan.SubScans,
	}
	for _, r := range results {
		if r.fail != nil {
			m.metrics.BoxFailed(r.fail.Stage)
			m.logger.Debug("skipping face box", "box", r.fail.Box.String(), "stage", r.fail.Stage, "error", r.fail.Err)
			out.Failures = append(out.Failures, *r.fail)
			continue
		}
		out.Identities = append(out.Identities, r.label)
	}
	slices.Sort(out.Identities)
	out.Duration = scan.Duration
	return out, nil
}

func (m *Matcher) classifyBox(ctx context.Context, img image.Image, box facematch.BoundingBox, clf *classifier.Trained) (string, string, error) {
	face, err := facematch.CropFace(img, box, m.faceSize)
	if err != nil {
		return "", StageCrop, err
	}
	emb, err := m.embedder.Embed(ctx, face)
	if err != nil {
		return "", StageEmbed, err
	}
	if len(emb) != clf.Dim() {
		return "", StageClassify, fmt.Errorf("%w: backend returned %d values, section enrolled with %d",
			ErrEmbeddingMismatch, len(emb), clf.Dim())
	}
	pred, err := clf.Identify(emb)
	if err != nil {
		return "", StageClassify, err
	}
	return pred.Label, "", nil
}
