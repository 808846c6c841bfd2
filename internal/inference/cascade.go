//go:build gocv

package inference

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"gocv.io/x/gocv"

	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/facematch"
)

func init() {
	RegisterBackend("cascade", func(cfg config.InferenceConfig) (*Backend, error) {
		det, err := NewCascadeDetector(cfg.CascadePath)
		if err != nil {
			return nil, err
		}
		// A Haar cascade cannot embed, so embeddings still come from the server.
		emb := NewClient(cfg.URL, cfg.Timeout)
		return &Backend{Detector: det, Embedder: emb, closers: []io.Closer{det}}, nil
	})
}

// CascadeDetector detects frontal faces locally with an OpenCV Haar cascade.
type CascadeDetector struct {
	mu         sync.Mutex
	classifier gocv.CascadeClassifier
}

// NewCascadeDetector loads a cascade XML file such as haarcascade_frontalface_default.xml.
func NewCascadeDetector(path string) (*CascadeDetector, error) {
	if path == "" {
		return nil, errors.New("cascade path is required (INFERENCE_CASCADE_PATH)")
	}
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier from %s", path)
	}
	return &CascadeDetector{classifier: classifier}, nil
}

// Detect implements FaceDetector.
func (d *CascadeDetector) Detect(ctx context.Context, img image.Image) ([]facematch.BoundingBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	d.mu.Lock()
	rects := d.classifier.DetectMultiScale(gray)
	d.mu.Unlock()

	boxes := make([]facematch.BoundingBox, 0, len(rects))
	for _, r := range rects {
		// Mat coordinates start at (0,0) regardless of the sub-image origin.
		boxes = append(boxes, facematch.FromRect(r, image.Point{}))
	}
	return boxes, nil
}

// Close releases the native classifier.
func (d *CascadeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}
