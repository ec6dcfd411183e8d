package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebridge/telehealth-platform/internal/appointments"
	"github.com/carebridge/telehealth-platform/internal/credits"
	"github.com/carebridge/telehealth-platform/internal/identity"
	"github.com/carebridge/telehealth-platform/internal/users"
	"github.com/carebridge/telehealth-platform/internal/video"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

// Handler exposes the booking API: slot listing, booking, lifecycle
// transitions, and video join tokens.
type Handler struct {
	svc    *Service
	appts  *appointments.Service
	repo   *appointments.Repository
	logger *logging.Logger
}

// NewHandler creates a booking handler.
func NewHandler(svc *Service, apptSvc *appointments.Service, repo *appointments.Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, appts: apptSvc, repo: repo, logger: logger.Component("booking_http")}
}

// ListSlots handles GET /doctors/{doctorID}/slots.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity.FromContext(r.Context()); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}

	slots, err := h.svc.ListAvailableSlots(r.Context(), doctorID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"days": slots})
}

type bookRequest struct {
	DoctorID    string `json:"doctorId"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	Description string `json:"description"`
}

// Book handles POST /appointments.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		http.Error(w, "invalid doctorId", http.StatusBadRequest)
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid startTime", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		http.Error(w, "invalid endTime", http.StatusBadRequest)
		return
	}

	appt, err := h.svc.Book(r.Context(), principal.UserID, doctorID, start, end, req.Description)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(appt)
}

// Cancel handles POST /appointments/{appointmentID}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	principal, apptID, ok := h.apptRequest(w, r)
	if !ok {
		return
	}
	appt, err := h.appts.Cancel(r.Context(), principal.UserID, apptID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.svc.InvalidateSlots(r.Context(), appt.DoctorID)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appt)
}

// Complete handles POST /appointments/{appointmentID}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	principal, apptID, ok := h.apptRequest(w, r)
	if !ok {
		return
	}
	appt, err := h.appts.Complete(r.Context(), principal.UserID, apptID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appt)
}

type notesRequest struct {
	Notes string `json:"notes"`
}

// AddNotes handles PUT /appointments/{appointmentID}/notes.
func (h *Handler) AddNotes(w http.ResponseWriter, r *http.Request) {
	principal, apptID, ok := h.apptRequest(w, r)
	if !ok {
		return
	}
	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.appts.AddNotes(r.Context(), principal.UserID, apptID, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(appt)
}

// JoinToken handles GET /appointments/{appointmentID}/token.
func (h *Handler) JoinToken(w http.ResponseWriter, r *http.Request) {
	principal, apptID, ok := h.apptRequest(w, r)
	if !ok {
		return
	}
	sessionID, token, err := h.svc.JoinToken(r.Context(), principal.UserID, apptID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"sessionId": sessionID,
		"token":     token,
	})
}

// ListMine handles GET /appointments: the caller's appointments, patient or
// doctor side.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var (
		appts []*appointments.Appointment
		err   error
	)
	if principal.Role == users.RoleDoctor {
		appts, err = h.repo.ListForDoctor(r.Context(), principal.UserID)
	} else {
		appts, err = h.repo.ListForPatient(r.Context(), principal.UserID)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	if appts == nil {
		appts = []*appointments.Appointment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"appointments": appts})
}

func (h *Handler) apptRequest(w http.ResponseWriter, r *http.Request) (identity.Principal, uuid.UUID, bool) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return identity.Principal{}, uuid.Nil, false
	}
	apptID, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return identity.Principal{}, uuid.Nil, false
	}
	return principal, apptID, true
}

// writeError maps domain sentinels to HTTP statuses. Every failure reaches
// the caller as a distinct, actionable message.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, users.ErrNotFound), errors.Is(err, appointments.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, users.ErrNotDoctor):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrNotPatient), errors.Is(err, appointments.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, appointments.ErrInvalidRange), errors.Is(err, appointments.ErrSelfBooking):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, appointments.ErrOverlapConflict), errors.Is(err, ErrSlotUnavailable):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, credits.ErrInsufficientCredits):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, appointments.ErrAlreadyTerminal),
		errors.Is(err, appointments.ErrNotScheduled),
		errors.Is(err, appointments.ErrTooEarly),
		errors.Is(err, appointments.ErrTooLateToCancel):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, video.ErrVideoService):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.logger.Error("request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
