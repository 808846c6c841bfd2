package web

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/database/mock"
	"github.com/kozaktomas/classroll/internal/facematch"
	"github.com/kozaktomas/classroll/internal/metrics"
	"github.com/kozaktomas/classroll/internal/scanner"
)

type noFaces struct{}

func (noFaces) Detect(context.Context, image.Image) ([]facematch.BoundingBox, error) { return nil, nil }

func (noFaces) Embed(context.Context, image.Image) (facematch.Embedding, error) {
	return facematch.Embedding{1, 0}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()

	sections := mock.NewMockSectionStore()
	_, err := sections.SaveSection(ctx, "CS101",
		[]facematch.Embedding{{1, 0}, {1, 0}, {0, 1}, {0, 1}},
		[]string{"alice", "alice", "bob", "bob"})
	require.NoError(t, err)

	users := mock.NewMockUserStore()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.SaveUser(ctx, &database.StoredUser{
		Username: "teacher1", PasswordHash: string(hash), Sections: []string{"CS101"},
	}))

	m, err := metrics.NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	svc, err := attendance.NewService(attendance.ServiceConfig{
		Sections: sections,
		Sheets:   mock.NewMockAttendanceStore(),
		Matcher:  attendance.NewMatcher(scanner.New(noFaces{}, scanner.NewFixedSplitter()), noFaces{}, 32, m, nil),
		Metrics:  m,
	})
	require.NoError(t, err)

	cfg := &config.Config{
		Inference:  config.InferenceConfig{Backend: "http"},
		Attendance: config.AttendanceConfig{Passes: 5, PresenceThreshold: 3, ScanTimeout: time.Minute},
		Web:        config.WebConfig{Host: "127.0.0.1", Port: 0, SessionSecret: "test"},
	}
	s := NewServer(cfg, svc, users, nil, m)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestServer_RequiresAuth(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/sections", "/api/v1/config", "/api/v1/sections/CS101/attendance"} {
		rec := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestServer_LoginThenListSections(t *testing.T) {
	s := newTestServer(t)

	login := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"teacher1","password":"secret"}`))
	rec := serve(s, login)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sections", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"section":"CS101"`)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sections/CS101/attendance/2026-01-05", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = serve(s, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "classroll_")
}

func TestServer_ServesUI(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/", "/history/CS101"} {
		rec := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "<title>Classroll</title>")
	}

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/assets/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
