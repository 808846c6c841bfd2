package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/constants"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/web/middleware"
)

// AttendanceHandler handles attendance taking, history and corrections
type AttendanceHandler struct {
	service *attendance.Service
	users   database.UserReader
}

// NewAttendanceHandler creates a new attendance handler
func NewAttendanceHandler(svc *attendance.Service, users database.UserReader) *AttendanceHandler {
	return &AttendanceHandler{service: svc, users: users}
}

// authorize resolves the session and section of a request, writing the
// error response itself when the teacher may not use the section.
func (h *AttendanceHandler) authorize(w http.ResponseWriter, r *http.Request) (*middleware.Session, string, bool) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil, "", false
	}
	section := chi.URLParam(r, "section")
	if section == "" {
		respondError(w, http.StatusBadRequest, "section is required")
		return nil, "", false
	}
	ok, err := canAccessSection(r, h.users, session.Username, section)
	if err != nil {
		respondServiceError(w, r, err)
		return nil, "", false
	}
	if !ok {
		respondError(w, http.StatusForbidden, "section not assigned to this teacher")
		return nil, "", false
	}
	return session, section, true
}

type takeRequest struct {
	ImageData string `json:"image_data"`
}

// TakeResponse is the outcome of an attendance session
type TakeResponse struct {
	SessionID string              `json:"session_id"`
	Section   string              `json:"section"`
	Date      string              `json:"date"`
	Present   int                 `json:"present"`
	Total     int                 `json:"total"`
	Faces     int                 `json:"faces"`
	Skipped   int                 `json:"skipped_faces"`
	Records   []attendance.Record `json:"records"`
}

// decodeDataURL accepts "data:image/jpeg;base64,..." or bare base64.
func decodeDataURL(s string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		_, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, errors.New("data URL has no payload")
		}
		s = payload
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

// readImage reads the classroom photo from a multipart "image" field or a
// JSON data URL.
func readImage(w http.ResponseWriter, r *http.Request) (image.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)

	var data []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
			return nil, fmt.Errorf("%w: failed to parse multipart form", attendance.ErrMalformedInput)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, fmt.Errorf("%w: image field is required", attendance.ErrMalformedInput)
		}
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			return nil, fmt.Errorf("%w: failed to read image", attendance.ErrMalformedInput)
		}
	} else {
		var req takeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: %s", attendance.ErrMalformedInput, errInvalidRequestBody)
		}
		if req.ImageData == "" {
			return nil, fmt.Errorf("%w: image_data is required", attendance.ErrMalformedInput)
		}
		var err error
		if data, err = decodeDataURL(req.ImageData); err != nil {
			return nil, fmt.Errorf("%w: image_data is not valid base64", attendance.ErrMalformedInput)
		}
	}
	return attendance.DecodeImage(data)
}

// Take runs an attendance session on an uploaded classroom photo
func (h *AttendanceHandler) Take(w http.ResponseWriter, r *http.Request) {
	session, section, ok := h.authorize(w, r)
	if !ok {
		return
	}

	img, err := readImage(w, r)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	sess, err := h.service.Take(r.Context(), session.Username, section, img)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, TakeResponse{
		SessionID: sess.ID,
		Section:   section,
		Date:      sess.Sheet.Date,
		Present:   sess.Sheet.Present(),
		Total:     len(sess.Records),
		Faces:     sess.Boxes,
		Skipped:   sess.Skipped,
		Records:   sess.Records,
	})
}

// History lists stored attendance dates for a section, newest first
func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	session, section, ok := h.authorize(w, r)
	if !ok {
		return
	}

	limit := constants.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	history, err := h.service.History(r.Context(), session.Username, section, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if history == nil {
		history = []database.SheetSummary{}
	}
	respondJSON(w, http.StatusOK, history)
}

// SheetResponse is a stored attendance sheet
type SheetResponse struct {
	Section   string                  `json:"section"`
	Date      string                  `json:"date"`
	Present   int                     `json:"present"`
	Total     int                     `json:"total"`
	Records   []database.StoredRecord `json:"records"`
	UpdatedAt string                  `json:"updated_at"`
}

func sheetResponse(s *database.StoredSheet) SheetResponse {
	return SheetResponse{
		Section:   s.Section,
		Date:      s.Date,
		Present:   s.Present(),
		Total:     len(s.Records),
		Records:   s.Records,
		UpdatedAt: s.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// Get returns the sheet of one date
func (h *AttendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, section, ok := h.authorize(w, r)
	if !ok {
		return
	}
	sheet, err := h.service.Sheet(r.Context(), session.Username, section, chi.URLParam(r, "date"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sheetResponse(sheet))
}

type updateRequest struct {
	Statuses map[string]string `json:"statuses"`
}

// Update applies manual status corrections keyed by roll number
func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, section, ok := h.authorize(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Statuses) == 0 {
		respondError(w, http.StatusBadRequest, "statuses are required")
		return
	}

	sheet, err := h.service.UpdateStatuses(r.Context(), session.Username, section, chi.URLParam(r, "date"), req.Statuses)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sheetResponse(sheet))
}

// FindStudent looks up one student on a sheet by name
func (h *AttendanceHandler) FindStudent(w http.ResponseWriter, r *http.Request) {
	session, section, ok := h.authorize(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	rec, err := h.service.Find(r.Context(), session.Username, section, chi.URLParam(r, "date"), name)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}
