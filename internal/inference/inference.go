// Package inference wraps the pretrained face models behind two small interfaces.
// Models are expensive to load, so a Backend is built once per process and shared
// read-only across requests.
package inference

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sort"
	"sync"

	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/facematch"
)

// FaceDetector finds candidate face boxes in an image.
// Returned boxes are relative to img.Bounds().Min.
type FaceDetector interface {
	Detect(ctx context.Context, img image.Image) ([]facematch.BoundingBox, error)
}

// EmbeddingExtractor turns a cropped, resized face into an embedding.
type EmbeddingExtractor interface {
	Embed(ctx context.Context, face image.Image) (facematch.Embedding, error)
}

// Backend bundles the loaded models. Close releases native resources, if any.
type Backend struct {
	Name     string
	Detector FaceDetector
	Embedder EmbeddingExtractor

	closers []io.Closer
}

// Close releases every model the backend loaded.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Factory builds a backend from configuration.
type Factory func(cfg config.InferenceConfig) (*Backend, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]Factory{}
)

// RegisterBackend makes a backend available by name. Native backends register
// themselves from files guarded by build tags.
func RegisterBackend(name string, f Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = f
}

// Backends lists the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBackend builds the configured backend.
func NewBackend(cfg config.InferenceConfig) (*Backend, error) {
	backendsMu.RLock()
	f, ok := backends[cfg.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("inference backend %q not available (compiled in: %v)", cfg.Backend, Backends())
	}
	b, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", cfg.Backend, err)
	}
	b.Name = cfg.Backend
	return b, nil
}
