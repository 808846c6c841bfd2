package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/classifier"
	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/database/mock"
	"github.com/kozaktomas/classroll/internal/facematch"
	"github.com/kozaktomas/classroll/internal/scanner"
	"github.com/kozaktomas/classroll/internal/web/middleware"
)

var handlerTestNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// testConfig creates a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Inference: config.InferenceConfig{Backend: "http", URL: "http://localhost:8000"},
		Attendance: config.AttendanceConfig{
			Passes:            5,
			PresenceThreshold: 3,
			FaceSize:          160,
			ScanTimeoutSecs:   120,
			Classifier:        "svm",
		},
	}
}

// oneFaceDetector reports a single box at the origin of every quadrant.
type oneFaceDetector struct{}

func (oneFaceDetector) Detect(context.Context, image.Image) ([]facematch.BoundingBox, error) {
	return []facematch.BoundingBox{{X: 0, Y: 0, Width: 10, Height: 10}}, nil
}

// fixedEmbedder embeds every face as the same vector.
type fixedEmbedder struct {
	embedding facematch.Embedding
}

func (e fixedEmbedder) Embed(context.Context, image.Image) (facematch.Embedding, error) {
	return e.embedding, nil
}

func unit(i int) facematch.Embedding {
	e := make(facematch.Embedding, 4)
	e[i] = 1
	return e
}

// handlerFixture bundles a service over in-memory stores where every detected
// face is recognized as alice.
type handlerFixture struct {
	service  *attendance.Service
	sections *mock.MockSectionStore
	sheets   *mock.MockAttendanceStore
	users    *mock.MockUserStore
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	ctx := context.Background()
	f := &handlerFixture{
		sections: mock.NewMockSectionStore(),
		sheets:   mock.NewMockAttendanceStore(),
		users:    mock.NewMockUserStore(),
	}

	embs := []facematch.Embedding{unit(0), unit(0), unit(1), unit(1)}
	labels := []string{"alice", "alice", "bob", "bob"}
	if _, err := f.sections.SaveSection(ctx, "CS101", embs, labels); err != nil {
		t.Fatalf("SaveSection: %v", err)
	}
	if _, err := f.sections.SaveSection(ctx, "MATH200", embs, labels); err != nil {
		t.Fatalf("SaveSection: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	if err := f.users.SaveUser(ctx, &database.StoredUser{
		Username:     "teacher1",
		PasswordHash: string(hash),
		Sections:     []string{"CS101"},
	}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	sc := scanner.New(oneFaceDetector{}, scanner.NewFixedSplitter())
	f.service, err = attendance.NewService(attendance.ServiceConfig{
		Sections: f.sections,
		Sheets:   f.sheets,
		Matcher:  attendance.NewMatcher(sc, fixedEmbedder{embedding: unit(0)}, 32, nil, nil),
		Cache:    classifier.NewCache(time.Minute),
		Now:      func() time.Time { return handlerTestNow },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return f
}

// requestWithSession creates a request carrying a logged-in teacher
func requestWithSession(method, path, body, username string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	session := &middleware.Session{ID: "test-session", Username: username, ExpiresAt: time.Now().Add(time.Hour)}
	return req.WithContext(middleware.SetSessionInContext(req.Context(), session))
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// pngDataURL encodes a blank w x h image as a data URL
func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}

func httpBody(b []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(b))
}
