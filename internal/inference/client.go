package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/facematch"
)

const (
	defaultInferenceURL = "http://localhost:8000"
	jpegQuality         = 95
)

func init() {
	RegisterBackend("http", func(cfg config.InferenceConfig) (*Backend, error) {
		c := NewClient(cfg.URL, cfg.Timeout)
		return &Backend{Detector: c, Embedder: c}, nil
	})
}

// Client talks to an inference server that hosts both the face detector and the
// embedding model.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new inference client. A zero timeout means no client-side limit.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultInferenceURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// detectResponse represents the response from the detect endpoint
type detectResponse struct {
	Faces []struct {
		Box        []float64 `json:"box"` // [x, y, w, h]
		Confidence float64   `json:"confidence"`
	} `json:"faces"`
}

// embeddingResponse represents the response from the embed endpoint
type embeddingResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}

// Detect sends img to the detector and returns boxes relative to img's origin.
func (c *Client) Detect(ctx context.Context, img image.Image) ([]facematch.BoundingBox, error) {
	data, err := encodeJPEG(img)
	if err != nil {
		return nil, err
	}
	body, err := c.postMultipartImage(ctx, "/detect", data)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	boxes := make([]facematch.BoundingBox, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.Box) != 4 {
			continue
		}
		boxes = append(boxes, facematch.BoundingBox{
			X:      int(f.Box[0]),
			Y:      int(f.Box[1]),
			Width:  int(f.Box[2]),
			Height: int(f.Box[3]),
		})
	}
	return boxes, nil
}

// Embed computes the embedding of a single cropped face.
func (c *Client) Embed(ctx context.Context, face image.Image) (facematch.Embedding, error) {
	data, err := encodeJPEG(face)
	if err != nil {
		return nil, err
	}
	body, err := c.postMultipartImage(ctx, "/embed", data)
	if err != nil {
		return nil, err
	}

	var resp embeddingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("empty embedding returned")
	}
	if resp.Dim != 0 && resp.Dim != len(resp.Embedding) {
		return nil, fmt.Errorf("embedding length %d does not match reported dim %d", len(resp.Embedding), resp.Dim)
	}
	return facematch.Embedding(resp.Embedding), nil
}

// Health checks that the inference server is reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference server unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
