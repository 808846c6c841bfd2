package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/classroll/internal/constants"
	"github.com/kozaktomas/classroll/internal/web/middleware"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *handlerFixture, *middleware.SessionManager) {
	t.Helper()
	f := newHandlerFixture(t)
	sm := middleware.NewSessionManager("test-secret", nil)
	t.Cleanup(sm.Stop)
	return NewAuthHandler(f.users, sm), f, sm
}

func TestAuthHandler_Login_Success(t *testing.T) {
	handler, _, sm := newAuthHandler(t)

	body := bytes.NewBufferString(`{"username": "teacher1", "password": "secret"}`)
	req := httptest.NewRequest("POST", "/api/v1/auth/login", body)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()

	handler.Login(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var response LoginResponse
	parseJSONResponse(t, recorder, &response)
	if !response.Success {
		t.Error("expected success to be true")
	}
	if response.Username != "teacher1" {
		t.Errorf("expected username teacher1, got %q", response.Username)
	}
	if sm.GetSession(req.Context(), response.SessionID) == nil {
		t.Error("expected session to be stored")
	}

	var found bool
	for _, c := range recorder.Result().Cookies() {
		if c.Name == constants.SessionCookieName {
			found = true
		}
	}
	if !found {
		t.Error("expected session cookie to be set")
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"wrong password", `{"username": "teacher1", "password": "nope"}`},
		{"unknown user", `{"username": "mallory", "password": "secret"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, _ := newAuthHandler(t)
			recorder := httptest.NewRecorder()
			handler.Login(recorder, httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(tt.body)))

			assertStatusCode(t, recorder, http.StatusUnauthorized)
			var response LoginResponse
			parseJSONResponse(t, recorder, &response)
			if response.Success || response.Error != "invalid credentials" {
				t.Errorf("unexpected response %+v", response)
			}
		})
	}
}

func TestAuthHandler_Login_MissingCredentials(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing username", `{"username": "", "password": "secret"}`},
		{"missing password", `{"username": "teacher1", "password": ""}`},
		{"missing both", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, _ := newAuthHandler(t)
			recorder := httptest.NewRecorder()
			handler.Login(recorder, httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(tt.body)))

			assertStatusCode(t, recorder, http.StatusBadRequest)
			assertJSONError(t, recorder, "username and password are required")
		})
	}
}

func TestAuthHandler_Login_InvalidJSON(t *testing.T) {
	handler, _, _ := newAuthHandler(t)
	recorder := httptest.NewRecorder()
	handler.Login(recorder, httptest.NewRequest("POST", "/api/v1/auth/login", bytes.NewBufferString(`{invalid`)))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}

func TestAuthHandler_Login_StoreFailure(t *testing.T) {
	handler, f, _ := newAuthHandler(t)
	f.users.GetError = errors.New("db down")

	recorder := httptest.NewRecorder()
	handler.Login(recorder, httptest.NewRequest("POST", "/api/v1/auth/login",
		bytes.NewBufferString(`{"username": "teacher1", "password": "secret"}`)))

	assertStatusCode(t, recorder, http.StatusInternalServerError)
}

func TestAuthHandler_StatusAndLogout(t *testing.T) {
	handler, _, sm := newAuthHandler(t)

	session, err := sm.CreateSession(t.Context(), "teacher1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/v1/auth/status", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	recorder := httptest.NewRecorder()
	handler.Status(recorder, req)

	var status StatusResponse
	parseJSONResponse(t, recorder, &status)
	if !status.Authenticated || status.Username != "teacher1" {
		t.Errorf("unexpected status %+v", status)
	}

	req = httptest.NewRequest("POST", "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	recorder = httptest.NewRecorder()
	handler.Logout(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	req = httptest.NewRequest("GET", "/api/v1/auth/status", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	recorder = httptest.NewRecorder()
	handler.Status(recorder, req)
	status = StatusResponse{}
	parseJSONResponse(t, recorder, &status)
	if status.Authenticated {
		t.Error("expected session to be gone after logout")
	}
}
