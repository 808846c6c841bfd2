package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/classroll/internal/config"
)

func TestConfigHandler_Get(t *testing.T) {
	cfg := testConfig()
	cfg.MariaDB.DSN = "classroll:secret@tcp(localhost:3306)/classroll"
	handler := NewConfigHandler(cfg)

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/config", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var result ConfigResponse
	parseJSONResponse(t, recorder, &result)

	if result.Backend != "http" {
		t.Errorf("expected backend http, got %q", result.Backend)
	}
	if result.Passes != 5 || result.PresenceThreshold != 3 {
		t.Errorf("expected 5 passes / threshold 3, got %d / %d", result.Passes, result.PresenceThreshold)
	}
	if !result.MirrorEnabled {
		t.Error("expected mirror to be reported as enabled")
	}
	found := false
	for _, b := range result.AvailableBackends {
		if b == "http" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected http among available backends, got %v", result.AvailableBackends)
	}
}

func TestConfigHandler_Get_DoesNotLeakSecrets(t *testing.T) {
	cfg := testConfig()
	cfg.Web.SessionSecret = "super-secret-value"
	cfg.Database.URL = "postgres://user:hunter2@db/classroll"
	handler := NewConfigHandler(cfg)

	recorder := httptest.NewRecorder()
	handler.Get(recorder, httptest.NewRequest("GET", "/api/v1/config", nil))

	body := recorder.Body.String()
	for _, secret := range []string{"super-secret-value", "hunter2"} {
		if contains(body, secret) {
			t.Errorf("config response leaks %q: %s", secret, body)
		}
	}
}

func TestNewConfigHandler(t *testing.T) {
	cfg := &config.Config{}
	if h := NewConfigHandler(cfg); h.config != cfg {
		t.Error("expected handler to hold reference to config")
	}
}
