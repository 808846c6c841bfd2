package inference

import (
	"context"
	"encoding/json"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/facematch"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 0)
}

func requireMultipartFile(t *testing.T, r *http.Request) {
	t.Helper()
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		t.Errorf("expected multipart request, got %q", r.Header.Get("Content-Type"))
	}
	if _, _, err := r.FormFile("file"); err != nil {
		t.Errorf("expected file part: %v", err)
	}
}

func TestClient_Detect(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		requireMultipartFile(t, r)
		json.NewEncoder(w).Encode(map[string]any{
			"faces": []map[string]any{
				{"box": []float64{-3, 4, 20, 22}, "confidence": 0.99},
				{"box": []float64{1, 2}, "confidence": 0.5},
			},
		})
	})

	boxes, err := c.Detect(context.Background(), image.NewRGBA(image.Rect(0, 0, 40, 40)))
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(boxes) != 1 {
		t.Fatalf("expected 1 box (malformed one skipped), got %d", len(boxes))
	}
	// Absolute-value correction happens downstream, the raw box is passed through.
	if boxes[0] != (facematch.BoundingBox{X: -3, Y: 4, Width: 20, Height: 22}) {
		t.Errorf("unexpected box %v", boxes[0])
	}
}

func TestClient_Embed(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		requireMultipartFile(t, r)
		json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float32{0.1, 0.2, 0.3},
			"dim":       3,
			"model":     "facenet",
		})
	})

	emb, err := c.Embed(context.Background(), image.NewRGBA(image.Rect(0, 0, 160, 160)))
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(emb) != 3 {
		t.Errorf("expected 3 dims, got %d", len(emb))
	}
}

func TestClient_EmbedErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`},
		{"empty embedding", http.StatusOK, `{"embedding":[],"dim":0}`},
		{"dim mismatch", http.StatusOK, `{"embedding":[1,2],"dim":128}`},
		{"invalid json", http.StatusOK, `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			if _, err := c.Embed(context.Background(), image.NewRGBA(image.Rect(0, 0, 8, 8))); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestClient_Health(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := c.Health(context.Background()); err != nil {
		t.Errorf("expected healthy server, got %v", err)
	}
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(config.InferenceConfig{Backend: "http", URL: "http://inference:8000"})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	if b.Name != "http" || b.Detector == nil || b.Embedder == nil {
		t.Errorf("incomplete backend %+v", b)
	}
	if err := b.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}

	if _, err := NewBackend(config.InferenceConfig{Backend: "nope"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
