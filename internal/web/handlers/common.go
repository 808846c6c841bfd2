package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kozaktomas/classroll/internal/attendance"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// errorStatus maps attendance errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, attendance.ErrMissingSectionData), errors.Is(err, attendance.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, attendance.ErrTrainingDataInsufficient):
		return http.StatusUnprocessableEntity
	case errors.Is(err, attendance.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, attendance.ErrScanTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, attendance.ErrEmbeddingMismatch):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondServiceError renders an attendance error. Internal errors are
// logged and hidden from the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", sanitizeForLog(r.URL.Path), "error", err)
		respondError(w, status, "internal error")
		return
	}
	respondError(w, status, err.Error())
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
