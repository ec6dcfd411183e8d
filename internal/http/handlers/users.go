package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carebridge/telehealth-platform/internal/identity"
	"github.com/carebridge/telehealth-platform/internal/users"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

// UsersHandler exposes user and doctor directory endpoints.
type UsersHandler struct {
	repo   *users.Repository
	logger *logging.Logger
}

// NewUsersHandler creates a users handler.
func NewUsersHandler(repo *users.Repository, logger *logging.Logger) *UsersHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &UsersHandler{repo: repo, logger: logger.Component("users_http")}
}

// Me handles GET /users/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	u, err := h.repo.GetByID(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("user lookup failed", "error", err, "user_id", principal.UserID)
		http.Error(w, "failed to load user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}

type setRoleRequest struct {
	Role          string `json:"role"`
	Specialty     string `json:"specialty"`
	Experience    int    `json:"experience"`
	CredentialURL string `json:"credentialUrl"`
	Description   string `json:"description"`
}

// SetRole handles POST /users/role: the onboarding choice between PATIENT
// and DOCTOR. A doctor application lands in PENDING verification.
func (h *UsersHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req setRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	u, err := h.repo.UpdateRole(r.Context(), principal.UserID, users.UpdateRoleParams{
		Role:          users.Role(req.Role),
		Specialty:     req.Specialty,
		Experience:    req.Experience,
		CredentialURL: req.CredentialURL,
		Description:   req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidRole):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, users.ErrNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			h.logger.Error("role update failed", "error", err, "user_id", principal.UserID)
			http.Error(w, "failed to update role", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(u)
}

// ListDoctors handles GET /doctors?specialty=: the verified doctor
// directory patients book from.
func (h *UsersHandler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity.FromContext(r.Context()); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	doctors, err := h.repo.ListVerifiedDoctors(r.Context(), r.URL.Query().Get("specialty"))
	if err != nil {
		h.logger.Error("doctor listing failed", "error", err)
		http.Error(w, "failed to list doctors", http.StatusInternalServerError)
		return
	}
	if doctors == nil {
		doctors = []*users.User{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"doctors": doctors})
}
