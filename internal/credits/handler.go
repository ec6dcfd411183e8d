package credits

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carebridge/telehealth-platform/internal/identity"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

// Handler exposes the caller's credit account.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

// NewHandler creates a credits handler.
func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger.Component("credits_http")}
}

// GetAccount handles GET /credits: the balance plus recent movements.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	balance, err := h.repo.Balance(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("balance lookup failed", "error", err, "user_id", principal.UserID)
		http.Error(w, "failed to load credits", http.StatusInternalServerError)
		return
	}

	txns, err := h.repo.ListTransactions(r.Context(), principal.UserID, 50)
	if err != nil {
		h.logger.Error("transaction list failed", "error", err, "user_id", principal.UserID)
		http.Error(w, "failed to load credits", http.StatusInternalServerError)
		return
	}
	if txns == nil {
		txns = []*Transaction{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"credits":      balance,
		"transactions": txns,
	})
}

type allocateRequest struct {
	Plan string `json:"plan"`
}

// Allocate handles POST /credits/allocate: grants the plan's monthly
// allowance if this month's grant has not happened yet.
func (h *Handler) Allocate(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req allocateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	granted, err := h.repo.AllocateMonthly(r.Context(), principal.UserID, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownPlan):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrUserNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			h.logger.Error("allocation failed", "error", err, "user_id", principal.UserID, "plan", req.Plan)
			http.Error(w, "failed to allocate credits", http.StatusInternalServerError)
		}
		return
	}

	balance, err := h.repo.Balance(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("balance lookup failed", "error", err, "user_id", principal.UserID)
		http.Error(w, "failed to load credits", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"granted": granted,
		"credits": balance,
	})
}
