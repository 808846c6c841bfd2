package handlers

import (
	"net/http"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/web/middleware"
)

// SectionsHandler lists the sections a teacher can take attendance for
type SectionsHandler struct {
	service *attendance.Service
	users   database.UserReader
}

// NewSectionsHandler creates a new sections handler
func NewSectionsHandler(svc *attendance.Service, users database.UserReader) *SectionsHandler {
	return &SectionsHandler{service: svc, users: users}
}

// List returns the enrolled sections assigned to the logged-in teacher
func (h *SectionsHandler) List(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sections, err := h.service.Sections(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]database.SectionSummary, 0, len(sections))
	for _, s := range sections {
		ok, err := canAccessSection(r, h.users, session.Username, s.Section)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		if ok {
			out = append(out, s)
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// canAccessSection reports whether a teacher is assigned to a section.
// Without a user store every logged-in teacher sees every section.
func canAccessSection(r *http.Request, users database.UserReader, username, section string) (bool, error) {
	if users == nil {
		return true, nil
	}
	user, err := users.GetUser(r.Context(), username)
	if err != nil {
		return false, err
	}
	return user != nil && user.HasSection(section), nil
}
