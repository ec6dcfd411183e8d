package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func userRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "email", "name", "role", "credits", "specialty", "experience",
		"credential_url", "description", "verification_status", "created_at",
	})
}

func TestGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(id).
		WillReturnRows(userRows().AddRow(
			id, "pat@example.com", "Pat", "PATIENT", 4, "", 0, "", "", "", time.Now(),
		))

	repo := NewRepository(mock)
	u, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.Role != RolePatient || u.Credits != 4 {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(id).
		WillReturnRows(userRows())

	repo := NewRepository(mock)
	if _, err := repo.GetByID(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetVerifiedDoctorRejectsPatients(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(id).
		WillReturnRows(userRows().AddRow(
			id, "pat@example.com", "Pat", "PATIENT", 4, "", 0, "", "", "", time.Now(),
		))

	repo := NewRepository(mock)
	if _, err := repo.GetVerifiedDoctor(context.Background(), id); !errors.Is(err, ErrNotDoctor) {
		t.Fatalf("expected ErrNotDoctor, got %v", err)
	}
}

func TestGetVerifiedDoctorRejectsPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(id).
		WillReturnRows(userRows().AddRow(
			id, "doc@example.com", "Doc", "DOCTOR", 0, "Cardiology", 8, "https://example.com/cred.pdf", "", "PENDING", time.Now(),
		))

	repo := NewRepository(mock)
	if _, err := repo.GetVerifiedDoctor(context.Background(), id); !errors.Is(err, ErrNotDoctor) {
		t.Fatalf("expected ErrNotDoctor, got %v", err)
	}
}

func TestListVerifiedDoctorsBySpecialty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("Cardiology").
		WillReturnRows(userRows().
			AddRow(uuid.New(), "a@example.com", "Dr A", "DOCTOR", 10, "Cardiology", 5, "", "", "VERIFIED", time.Now()).
			AddRow(uuid.New(), "b@example.com", "Dr B", "DOCTOR", 2, "Cardiology", 9, "", "", "VERIFIED", time.Now()))

	repo := NewRepository(mock)
	doctors, err := repo.ListVerifiedDoctors(context.Background(), "Cardiology")
	if err != nil {
		t.Fatalf("ListVerifiedDoctors: %v", err)
	}
	if len(doctors) != 2 {
		t.Fatalf("expected 2 doctors, got %d", len(doctors))
	}
}
