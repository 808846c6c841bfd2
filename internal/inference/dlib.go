//go:build dlib

package inference

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	face "github.com/Kagami/go-face"

	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/facematch"
)

func init() {
	RegisterBackend("dlib", func(cfg config.InferenceConfig) (*Backend, error) {
		d, err := NewDlibModel(cfg.ModelDir)
		if err != nil {
			return nil, err
		}
		return &Backend{Detector: d, Embedder: d, closers: []io.Closer{d}}, nil
	})
}

// ErrNoFace is returned when dlib finds no face in an embed crop.
var ErrNoFace = errors.New("no face found in crop")

// DlibModel serves both detection and 128-d embeddings from the dlib models
// (shape_predictor_5_face_landmarks.dat, dlib_face_recognition_resnet_model_v1.dat,
// mmod_human_face_detector.dat) in one directory.
type DlibModel struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// NewDlibModel loads the recognizer from modelDir.
func NewDlibModel(modelDir string) (*DlibModel, error) {
	if modelDir == "" {
		return nil, errors.New("model directory is required (INFERENCE_MODEL_DIR)")
	}
	rec, err := face.NewRecognizer(modelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load dlib models: %w", err)
	}
	return &DlibModel{rec: rec}, nil
}

// Detect implements FaceDetector.
func (m *DlibModel) Detect(ctx context.Context, img image.Image) ([]facematch.BoundingBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	faces, err := m.rec.Recognize(data)
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib detect: %w", err)
	}

	boxes := make([]facematch.BoundingBox, 0, len(faces))
	for _, f := range faces {
		// The encoded JPEG always starts at (0,0).
		boxes = append(boxes, facematch.FromRect(f.Rectangle, image.Point{}))
	}
	return boxes, nil
}

// Embed implements EmbeddingExtractor.
func (m *DlibModel) Embed(ctx context.Context, crop image.Image) (facematch.Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := encodeJPEG(crop)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	f, err := m.rec.RecognizeSingle(data)
	m.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("dlib embed: %w", err)
	}
	if f == nil {
		return nil, ErrNoFace
	}

	emb := make(facematch.Embedding, len(f.Descriptor))
	copy(emb, f.Descriptor[:])
	return emb, nil
}

// Close releases the native recognizer.
func (m *DlibModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec.Close()
	return nil
}
