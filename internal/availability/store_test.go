package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func windowRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "doctor_id", "start_time", "end_time", "status", "created_at",
	})
}

func TestSetWindowRejectsInvalidRange(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock, nil)
	start := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	if _, err := store.SetWindow(context.Background(), uuid.New(), start, end); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := store.SetWindow(context.Background(), uuid.New(), start, start); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for equal times, got %v", err)
	}
}

func TestSetWindowReplacesUnused(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	doctorID := uuid.New()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 10, 17, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM availability_windows").
		WithArgs(doctorID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("UPDATE availability_windows").
		WithArgs(StatusSuperseded, doctorID, StatusAvailable).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("INSERT INTO availability_windows").
		WithArgs(pgxmock.AnyArg(), doctorID, start, end, StatusAvailable).
		WillReturnRows(windowRows().AddRow(
			uuid.New(), doctorID, start, end, StatusAvailable, time.Now(),
		))
	mock.ExpectCommit()

	store := NewStore(mock, nil)
	window, err := store.SetWindow(context.Background(), doctorID, start, end)
	if err != nil {
		t.Fatalf("SetWindow: %v", err)
	}
	if window.Status != StatusAvailable {
		t.Fatalf("expected AVAILABLE window, got %s", window.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetWindowNone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	doctorID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM availability_windows").
		WithArgs(doctorID, StatusAvailable).
		WillReturnRows(windowRows())

	store := NewStore(mock, nil)
	if _, err := store.GetWindow(context.Background(), doctorID); !errors.Is(err, ErrNoWindow) {
		t.Fatalf("expected ErrNoWindow, got %v", err)
	}
}

func TestGetWindow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	doctorID := uuid.New()
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM availability_windows").
		WithArgs(doctorID, StatusAvailable).
		WillReturnRows(windowRows().AddRow(
			uuid.New(), doctorID, start, end, StatusAvailable, time.Now(),
		))

	store := NewStore(mock, nil)
	window, err := store.GetWindow(context.Background(), doctorID)
	if err != nil {
		t.Fatalf("GetWindow: %v", err)
	}
	if !window.StartTime.Equal(start) || !window.EndTime.Equal(end) {
		t.Fatalf("unexpected window: %+v", window)
	}
}
