package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/classroll/internal/attendance"
	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/web/middleware"
)

func takeJSON(t *testing.T, h *AttendanceHandler, username, section string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"image_data": pngDataURL(t, 64, 64)})
	req := requestWithSession("POST", "/api/v1/sections/"+section+"/attendance", string(body), username)
	req = requestWithChiParams(req, map[string]string{"section": section})
	recorder := httptest.NewRecorder()
	h.Take(recorder, req)
	return recorder
}

func TestAttendanceHandler_TakeJSON(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAttendanceHandler(f.service, f.users)

	recorder := takeJSON(t, h, "teacher1", "CS101")
	assertStatusCode(t, recorder, http.StatusOK)

	var resp TakeResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Date != "2026-03-02" || resp.Total != 2 || resp.Present != 1 {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Records[0].Name != "alice" || resp.Records[0].Status != attendance.Present {
		t.Errorf("expected alice present, got %+v", resp.Records[0])
	}
	if resp.Records[1].RollNo != "002" || resp.Records[1].Status != attendance.Absent {
		t.Errorf("expected bob absent with roll 002, got %+v", resp.Records[1])
	}
	if f.sheets.UpsertCalls != 1 {
		t.Errorf("expected one stored sheet, got %d", f.sheets.UpsertCalls)
	}
}

func TestAttendanceHandler_TakeMultipart(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAttendanceHandler(f.service, f.users)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "class.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if err := png.Encode(part, image.NewRGBA(image.Rect(0, 0, 64, 64))); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	mw.Close()

	req := requestWithSession("POST", "/api/v1/sections/CS101/attendance", "", "teacher1")
	req.Body = httpBody(body.Bytes())
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = requestWithChiParams(req, map[string]string{"section": "CS101"})
	recorder := httptest.NewRecorder()
	h.Take(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
}

func TestAttendanceHandler_TakeErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		section string
		user    string
		status  int
	}{
		{"section not assigned", `{"image_data":"x"}`, "MATH200", "teacher1", http.StatusForbidden},
		{"unknown teacher", `{"image_data":"x"}`, "CS101", "mallory", http.StatusForbidden},
		{"missing image", `{}`, "CS101", "teacher1", http.StatusBadRequest},
		{"bad base64", `{"image_data":"data:image/png;base64,@@@"}`, "CS101", "teacher1", http.StatusBadRequest},
		{"not an image", `{"image_data":"aGVsbG8="}`, "CS101", "teacher1", http.StatusBadRequest},
		{"invalid json", `{`, "CS101", "teacher1", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(t)
			h := NewAttendanceHandler(f.service, f.users)

			req := requestWithSession("POST", "/api/v1/sections/"+tt.section+"/attendance", tt.body, tt.user)
			req = requestWithChiParams(req, map[string]string{"section": tt.section})
			recorder := httptest.NewRecorder()
			h.Take(recorder, req)

			assertStatusCode(t, recorder, tt.status)
		})
	}
}

func TestAttendanceHandler_TakeUnenrolledSection(t *testing.T) {
	f := newHandlerFixture(t)
	// Without a user store every section is accessible, so the missing corpus surfaces.
	h := NewAttendanceHandler(f.service, nil)

	recorder := takeJSON(t, h, "teacher1", "PHYS100")
	assertStatusCode(t, recorder, http.StatusNotFound)
}

func TestAttendanceHandler_Unauthenticated(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAttendanceHandler(f.service, f.users)

	req := httptest.NewRequest("GET", "/api/v1/sections/CS101/attendance", nil)
	req = requestWithChiParams(req, map[string]string{"section": "CS101"})
	recorder := httptest.NewRecorder()
	h.History(recorder, req)

	assertStatusCode(t, recorder, http.StatusUnauthorized)
}

func TestAttendanceHandler_HistoryGetUpdate(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAttendanceHandler(f.service, f.users)
	assertStatusCode(t, takeJSON(t, h, "teacher1", "CS101"), http.StatusOK)

	// History
	req := requestWithChiParams(requestWithSession("GET", "/api/v1/sections/CS101/attendance", "", "teacher1"),
		map[string]string{"section": "CS101"})
	recorder := httptest.NewRecorder()
	h.History(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)
	var history []database.SheetSummary
	parseJSONResponse(t, recorder, &history)
	if len(history) != 1 || history[0].Date != "2026-03-02" {
		t.Fatalf("unexpected history %+v", history)
	}

	// Update
	req = requestWithChiParams(
		requestWithSession("PUT", "/api/v1/sections/CS101/attendance/2026-03-02", `{"statuses":{"002":"P"}}`, "teacher1"),
		map[string]string{"section": "CS101", "date": "2026-03-02"})
	recorder = httptest.NewRecorder()
	h.Update(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)

	// Get
	req = requestWithChiParams(requestWithSession("GET", "/api/v1/sections/CS101/attendance/2026-03-02", "", "teacher1"),
		map[string]string{"section": "CS101", "date": "2026-03-02"})
	recorder = httptest.NewRecorder()
	h.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)
	var sheet SheetResponse
	parseJSONResponse(t, recorder, &sheet)
	if sheet.Present != 2 || sheet.Records[1].Status != "P" {
		t.Errorf("expected both present after correction, got %+v", sheet)
	}

	// Find
	req = requestWithChiParams(
		requestWithSession("GET", "/api/v1/sections/CS101/attendance/2026-03-02/students?name=BOB", "", "teacher1"),
		map[string]string{"section": "CS101", "date": "2026-03-02"})
	recorder = httptest.NewRecorder()
	h.FindStudent(recorder, req)
	assertStatusCode(t, recorder, http.StatusOK)
	var rec database.StoredRecord
	parseJSONResponse(t, recorder, &rec)
	if rec.RollNo != "002" {
		t.Errorf("expected roll 002, got %+v", rec)
	}
}

func TestAttendanceHandler_GetErrors(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAttendanceHandler(f.service, f.users)

	tests := []struct {
		date   string
		status int
	}{
		{"2026-03-02", http.StatusNotFound},
		{"yesterday", http.StatusBadRequest},
	}
	for _, tt := range tests {
		req := requestWithChiParams(requestWithSession("GET", "/", "", "teacher1"),
			map[string]string{"section": "CS101", "date": tt.date})
		recorder := httptest.NewRecorder()
		h.Get(recorder, req)
		assertStatusCode(t, recorder, tt.status)
	}

	f.sheets.GetError = errors.New("db down")
	req := requestWithChiParams(requestWithSession("GET", "/", "", "teacher1"),
		map[string]string{"section": "CS101", "date": "2026-03-02"})
	recorder := httptest.NewRecorder()
	h.Get(recorder, req)
	assertStatusCode(t, recorder, http.StatusInternalServerError)
}

func TestAttendanceHandler_UpdateValidation(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewAttendanceHandler(f.service, f.users)
	assertStatusCode(t, takeJSON(t, h, "teacher1", "CS101"), http.StatusOK)

	for _, body := range []string{`{}`, `{"statuses":{"001":"maybe"}}`, `not json`} {
		req := requestWithChiParams(requestWithSession("PUT", "/", body, "teacher1"),
			map[string]string{"section": "CS101", "date": "2026-03-02"})
		recorder := httptest.NewRecorder()
		h.Update(recorder, req)
		assertStatusCode(t, recorder, http.StatusBadRequest)
	}
}

func TestSectionsHandler_List(t *testing.T) {
	f := newHandlerFixture(t)
	h := NewSectionsHandler(f.service, f.users)

	recorder := httptest.NewRecorder()
	h.List(recorder, requestWithSession("GET", "/api/v1/sections", "", "teacher1"))
	assertStatusCode(t, recorder, http.StatusOK)

	var sections []database.SectionSummary
	parseJSONResponse(t, recorder, &sections)
	if len(sections) != 1 || sections[0].Section != "CS101" || sections[0].Students != 2 {
		t.Errorf("unexpected sections %+v", sections)
	}

	req := httptest.NewRequest("GET", "/api/v1/sections", nil)
	req = req.WithContext(middleware.SetSessionInContext(req.Context(), &middleware.Session{Username: "mallory"}))
	recorder = httptest.NewRecorder()
	h.List(recorder, req)
	var none []database.SectionSummary
	parseJSONResponse(t, recorder, &none)
	if len(none) != 0 {
		t.Errorf("expected no sections for unknown teacher, got %+v", none)
	}
}

func TestDecodeDataURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"data:image/jpeg;base64,aGVsbG8=", "hello", false},
		{"aGVsbG8=", "hello", false},
		{"data:image/jpeg;base64", "", true},
		{"!!!", "", true},
	}
	for _, tt := range tests {
		got, err := decodeDataURL(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("decodeDataURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if string(got) != tt.want {
			t.Errorf("decodeDataURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
