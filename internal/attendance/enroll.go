package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kozaktomas/classroll/internal/classifier"
	"github.com/kozaktomas/classroll/internal/constants"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/facematch"
	"github.com/kozaktomas/classroll/internal/inference"
)

// ErrNoFace means enrollment found no face in a dataset image.
var ErrNoFace = errors.New("no face detected")

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// EnrollImage is one dataset photo of a student.
type EnrollImage struct {
	Student string
	Path    string
}

// EnrollReport summarizes one enrollment run.
type EnrollReport struct {
	Section  string         `json:"section"`
	Students int            `json:"students"`
	Images   int            `json:"images"`
	Enrolled int            `json:"enrolled"`
	Skipped  int            `json:"skipped"`
	Version  int64          `json:"version"`
	Failures map[string]int `json:"failures,omitempty"` // student -> skipped images
}

// Enroller builds a section corpus from a folder-per-student dataset.
type Enroller struct {
	detector inference.FaceDetector
	embedder inference.EmbeddingExtractor
	sections database.SectionWriter
	cache    *classifier.Cache
	faceSize int
	logger   *slog.Logger
}

// NewEnroller creates an Enroller. cache may be nil.
func NewEnroller(detector inference.FaceDetector, embedder inference.EmbeddingExtractor, sections database.SectionWriter, cache *classifier.Cache, faceSize int, logger *slog.Logger) *Enroller {
	if faceSize <= 0 {
		faceSize = constants.FaceInputSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enroller{
		detector: detector,
		embedder: embedder,
		sections: sections,
		cache:    cache,
		faceSize: faceSize,
		logger:   logger,
	}
}

// ListDataset returns the images under <root>/<section>/<student>/, ordered
// by student then file name. Hidden entries and non-image files are ignored.
func ListDataset(root, section string) ([]EnrollImage, error) {
	dir := filepath.Join(root, section)
	students, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read section directory %s: %w", dir, err)
	}

	var out []EnrollImage
	for _, s := range students {
		if !s.IsDir() || strings.HasPrefix(s.Name(), ".") {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, s.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read student directory %s: %w", s.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			if !imageExtensions[strings.ToLower(filepath.Ext(f.Name()))] {
				continue
			}
			out = append(out, EnrollImage{Student: s.Name(), Path: filepath.Join(dir, s.Name(), f.Name())})
		}
	}
	slices.SortFunc(out, func(a, b EnrollImage) int {
		if c := strings.Compare(a.Student, b.Student); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	return out, nil
}

// EmbedFile detects the first face of an image file and embeds it.
func (e *Enroller) EmbedFile(ctx context.Context, path string) (facematch.Embedding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := facematch.DecodePhoto(data)
	if err != nil {
		return nil, err
	}
	boxes, err := e.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	if len(boxes) == 0 {
		return nil, ErrNoFace
	}
	face, err := facematch.CropFace(img, boxes[0].Normalize(), e.faceSize)
	if err != nil {
		return nil, err
	}
	return e.embedder.Embed(ctx, face)
}

// Enroll embeds every image and replaces the section corpus. Images that fail
// are skipped and counted. progress, when set, is called after each image.
func (e *Enroller) Enroll(ctx context.Context, section string, images []EnrollImage, progress func(done, total int)) (*EnrollReport, error) {
	report := &EnrollReport{Section: section, Images: len(images), Failures: map[string]int{}}
	var (
		embeddings []facematch.Embedding
		labels     []string
	)
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := e.EmbedFile(ctx, img.Path)
		if err != nil {
			e.logger.Warn("skipping enrollment image", "student", img.Student, "path", img.Path, "error", err)
			report.Skipped++
			report.Failures[img.Student]++
		} else {
			embeddings = append(embeddings, emb)
			labels = append(labels, img.Student)
		}
		if progress != nil {
			progress(i+1, len(images))
		}
	}

	if len(embeddings) == 0 {
		return nil, fmt.Errorf("%w: no face could be enrolled for section %s", ErrMissingSectionData, section)
	}

	version, err := e.sections.SaveSection(ctx, section, embeddings, labels)
	if err != nil {
		return nil, fmt.Errorf("failed to save section %s: %w", section, err)
	}
	if e.cache != nil {
		e.cache.Invalidate(section)
	}

	report.Enrolled = len(embeddings)
	report.Students = len(NewLedger(labels).entries)
	report.Version = version
	e.logger.Info("section enrolled", "section", section, "students", report.Students,
		"enrolled", report.Enrolled, "skipped", report.Skipped, "version", version)
	return report, nil
}
