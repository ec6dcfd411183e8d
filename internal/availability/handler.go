package availability

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/carebridge/telehealth-platform/internal/identity"
	"github.com/carebridge/telehealth-platform/internal/users"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

// Handler exposes availability management to the doctor dashboard.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates an availability handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger.Component("availability")}
}

type setWindowRequest struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// SetWindow handles POST /doctor/availability.
func (h *Handler) SetWindow(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if principal.Role != users.RoleDoctor {
		http.Error(w, "only doctors can set availability", http.StatusForbidden)
		return
	}

	var req setWindowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	start, err := parseWindowTime(req.StartTime)
	if err != nil {
		http.Error(w, "invalid startTime", http.StatusBadRequest)
		return
	}
	end, err := parseWindowTime(req.EndTime)
	if err != nil {
		http.Error(w, "invalid endTime", http.StatusBadRequest)
		return
	}

	window, err := h.store.SetWindow(r.Context(), principal.UserID, start, end)
	if err != nil {
		if errors.Is(err, ErrInvalidRange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("set window failed", "error", err, "doctor_id", principal.UserID)
		http.Error(w, "failed to set availability", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(window)
}

// GetWindows handles GET /doctor/availability.
func (h *Handler) GetWindows(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if principal.Role != users.RoleDoctor {
		http.Error(w, "only doctors have availability", http.StatusForbidden)
		return
	}

	windows, err := h.store.ListWindows(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("list windows failed", "error", err, "doctor_id", principal.UserID)
		http.Error(w, "failed to list availability", http.StatusInternalServerError)
		return
	}
	if windows == nil {
		windows = []*Window{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"windows": windows})
}

// parseWindowTime accepts RFC3339 instants or bare wall-clock times.
func parseWindowTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("15:04", value)
}
