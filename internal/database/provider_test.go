package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/database/mock"
)

func TestMirroredAttendance(t *testing.T) {
	ctx := context.Background()
	primary := mock.NewMockAttendanceStore()
	mirror := mock.NewMockAttendanceStore()
	m := database.NewMirroredAttendance(primary, mirror, nil)

	sheet := &database.StoredSheet{
		Owner:   "teacher",
		Section: "CS101",
		Date:    "2026-03-02",
		Records: []database.StoredRecord{{SerialNo: 1, Name: "alice", RollNo: "001", Status: "P"}},
	}
	if err := m.UpsertSheet(ctx, sheet); err != nil {
		t.Fatalf("UpsertSheet: %v", err)
	}
	if primary.UpsertCalls != 1 || mirror.UpsertCalls != 1 {
		t.Errorf("expected one write to each store, got primary=%d mirror=%d", primary.UpsertCalls, mirror.UpsertCalls)
	}

	got, err := m.GetSheet(ctx, "teacher", "CS101", "2026-03-02")
	if err != nil || got == nil {
		t.Fatalf("GetSheet: %v %v", got, err)
	}
}

func TestMirroredAttendance_MirrorFailureIsIgnored(t *testing.T) {
	primary := mock.NewMockAttendanceStore()
	mirror := mock.NewMockAttendanceStore()
	mirror.UpsertError = errors.New("mariadb down")
	m := database.NewMirroredAttendance(primary, mirror, nil)

	err := m.UpsertSheet(context.Background(), &database.StoredSheet{Owner: "t", Section: "s", Date: "2026-01-01"})
	if err != nil {
		t.Errorf("mirror failure must not fail the write, got %v", err)
	}
	if primary.UpsertCalls != 1 {
		t.Errorf("expected primary write, got %d", primary.UpsertCalls)
	}
}

func TestMirroredAttendance_PrimaryFailure(t *testing.T) {
	primary := mock.NewMockAttendanceStore()
	primary.UpsertError = errors.New("postgres down")
	mirror := mock.NewMockAttendanceStore()
	m := database.NewMirroredAttendance(primary, mirror, nil)

	if err := m.UpsertSheet(context.Background(), &database.StoredSheet{Owner: "t", Section: "s", Date: "2026-01-01"}); err == nil {
		t.Error("expected primary error")
	}
	if mirror.UpsertCalls != 0 {
		t.Error("mirror must not be written when the primary fails")
	}
}
