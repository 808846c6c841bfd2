package handlers

import (
	"net/http"

	"github.com/kozaktomas/classroll/internal/config"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/inference"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse describes the attendance pipeline the server runs with
type ConfigResponse struct {
	Backend           string   `json:"backend"`
	AvailableBackends []string `json:"available_backends"`
	Classifier        string   `json:"classifier"`
	Passes            int      `json:"passes"`
	PresenceThreshold int      `json:"presence_threshold"`
	FaceSize          int      `json:"face_size"`
	ScanTimeoutSecs   int      `json:"scan_timeout_seconds"`
	DatabaseEnabled   bool     `json:"database_enabled"`
	MirrorEnabled     bool     `json:"mirror_enabled"`
}

// Get returns the effective configuration, without secrets
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	a := h.config.Attendance
	respondJSON(w, http.StatusOK, ConfigResponse{
		Backend:           h.config.Inference.Backend,
		AvailableBackends: inference.Backends(),
		Classifier:        a.Classifier,
		Passes:            a.Passes,
		PresenceThreshold: a.PresenceThreshold,
		FaceSize:          a.FaceSize,
		ScanTimeoutSecs:   a.ScanTimeoutSecs,
		DatabaseEnabled:   database.IsInitialized(),
		MirrorEnabled:     h.config.MariaDB.DSN != "",
	})
}
