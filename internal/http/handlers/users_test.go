package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/telehealth-platform/internal/identity"
	"github.com/carebridge/telehealth-platform/internal/users"
)

func doctorRows(ids ...uuid.UUID) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"id", "email", "name", "role", "credits", "specialty", "experience",
		"credential_url", "description", "verification_status", "created_at",
	})
	for i, id := range ids {
		rows.AddRow(id, "doc@example.com", "Doc", users.RoleDoctor, 0, "cardiology", 5+i,
			"https://example.com/cred.pdf", "", users.VerificationVerified, time.Now())
	}
	return rows
}

func TestMeReturnsCurrentUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(userID).
		WillReturnRows(doctorRows(userID))

	h := NewUsersHandler(users.NewRepository(mock), nil)
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	req = req.WithContext(identity.WithPrincipal(context.Background(), identity.Principal{
		UserID: userID,
		Role:   users.RoleDoctor,
	}))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var u users.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Equal(t, userID, u.ID)
	assert.Equal(t, users.RoleDoctor, u.Role)
}

func TestMeRequiresAuth(t *testing.T) {
	h := NewUsersHandler(nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListDoctorsFiltersBySpecialty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("cardiology").
		WillReturnRows(doctorRows(uuid.New(), uuid.New()))

	h := NewUsersHandler(users.NewRepository(mock), nil)
	req := httptest.NewRequest(http.MethodGet, "/doctors?specialty=cardiology", nil)
	req = req.WithContext(identity.WithPrincipal(context.Background(), identity.Principal{
		UserID: uuid.New(),
		Role:   users.RolePatient,
	}))
	rec := httptest.NewRecorder()
	h.ListDoctors(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Doctors []*users.User `json:"doctors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Doctors, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDoctorsEmptyIsAnArray(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnRows(doctorRows())

	h := NewUsersHandler(users.NewRepository(mock), nil)
	req := httptest.NewRequest(http.MethodGet, "/doctors", nil)
	req = req.WithContext(identity.WithPrincipal(context.Background(), identity.Principal{
		UserID: uuid.New(),
		Role:   users.RolePatient,
	}))
	rec := httptest.NewRecorder()
	h.ListDoctors(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"doctors":[]`)
}

func TestSetRoleDoctorApplicationGoesPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	rows := pgxmock.NewRows([]string{
		"id", "email", "name", "role", "credits", "specialty", "experience",
		"credential_url", "description", "verification_status", "created_at",
	}).AddRow(userID, "doc@example.com", "Doc", users.RoleDoctor, 0, "cardiology", 8,
		"https://example.com/cred.pdf", "Cardiologist", users.VerificationPending, time.Now())

	mock.ExpectQuery("UPDATE users").
		WithArgs(users.RoleDoctor, "cardiology", 8, "https://example.com/cred.pdf",
			"Cardiologist", users.VerificationPending, userID).
		WillReturnRows(rows)

	h := NewUsersHandler(users.NewRepository(mock), nil)
	body := strings.NewReader(`{"role":"DOCTOR","specialty":"cardiology","experience":8,"credentialUrl":"https://example.com/cred.pdf","description":"Cardiologist"}`)
	req := httptest.NewRequest(http.MethodPost, "/users/role", body)
	req = req.WithContext(identity.WithPrincipal(context.Background(), identity.Principal{
		UserID: userID,
		Role:   users.RoleUnassigned,
	}))
	rec := httptest.NewRecorder()
	h.SetRole(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var u users.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &u))
	assert.Equal(t, users.RoleDoctor, u.Role)
	assert.Equal(t, users.VerificationPending, u.VerificationStatus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRolePatient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	userID := uuid.New()
	rows := pgxmock.NewRows([]string{
		"id", "email", "name", "role", "credits", "specialty", "experience",
		"credential_url", "description", "verification_status", "created_at",
	}).AddRow(userID, "pat@example.com", "Pat", users.RolePatient, 2, "", 0,
		"", "", users.VerificationStatus(""), time.Now())

	mock.ExpectQuery("UPDATE users SET role").
		WithArgs(users.RolePatient, userID).
		WillReturnRows(rows)

	h := NewUsersHandler(users.NewRepository(mock), nil)
	req := httptest.NewRequest(http.MethodPost, "/users/role", strings.NewReader(`{"role":"PATIENT"}`))
	req = req.WithContext(identity.WithPrincipal(context.Background(), identity.Principal{
		UserID: userID,
		Role:   users.RoleUnassigned,
	}))
	rec := httptest.NewRecorder()
	h.SetRole(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRoleRejectsAdmin(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	h := NewUsersHandler(users.NewRepository(mock), nil)
	req := httptest.NewRequest(http.MethodPost, "/users/role", strings.NewReader(`{"role":"ADMIN"}`))
	req = req.WithContext(identity.WithPrincipal(context.Background(), identity.Principal{
		UserID: uuid.New(),
		Role:   users.RoleUnassigned,
	}))
	rec := httptest.NewRecorder()
	h.SetRole(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetRoleDoctorRequiresProfileFields(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	h := NewUsersHandler(users.NewRepository(mock), nil)
	req := httptest.NewRequest(http.MethodPost, "/users/role", strings.NewReader(`{"role":"DOCTOR"}`))
	req = req.WithContext(identity.WithPrincipal(context.Background(), identity.Principal{
		UserID: uuid.New(),
		Role:   users.RoleUnassigned,
	}))
	rec := httptest.NewRecorder()
	h.SetRole(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
