package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/web/middleware"
)

// decoyHash is compared against when the username is unknown so that a
// failed login takes the same time whether or not the teacher exists.
var decoyHash, _ = bcrypt.GenerateFromPassword([]byte("classroll-decoy"), bcrypt.DefaultCost)

// AuthHandler serves login, logout and session status for teachers.
type AuthHandler struct {
	users    database.UserReader
	sessions *middleware.SessionManager
}

func NewAuthHandler(users database.UserReader, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{users: users, sessions: sm}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	Username  string `json:"username,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" || c.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if h.users == nil {
		respondError(w, http.StatusServiceUnavailable, "user store not configured")
		return
	}

	teacher, err := h.users.GetUser(r.Context(), c.Username)
	if err != nil {
		slog.Error("login lookup failed", "username", sanitizeForLog(c.Username), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}

	hash := decoyHash
	if teacher != nil {
		hash = []byte(teacher.PasswordHash)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(c.Password)) != nil || teacher == nil {
		slog.Info("login rejected", "username", sanitizeForLog(c.Username), "remote", r.RemoteAddr)
		respondJSON(w, http.StatusUnauthorized, LoginResponse{Error: "invalid credentials"})
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), teacher.Username)
	if err != nil {
		slog.Error("create session", "username", teacher.Username, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessions.SetSessionCookie(w, r, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: session.ID,
		Username:  session.Username,
		ExpiresAt: rfc3339(session.ExpiresAt),
	})
}

// Logout is idempotent: it clears the cookie even without a live session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if s := h.sessions.GetSessionFromRequest(r); s != nil {
		h.sessions.DeleteSession(r.Context(), s.ID)
	}
	h.sessions.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.GetSessionFromRequest(r)
	if s == nil {
		respondJSON(w, http.StatusOK, StatusResponse{})
		return
	}
	respondJSON(w, http.StatusOK, StatusResponse{
		Authenticated: true,
		Username:      s.Username,
		ExpiresAt:     rfc3339(s.ExpiresAt),
	})
}

func rfc3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
