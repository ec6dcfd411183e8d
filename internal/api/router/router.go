package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carebridge/telehealth-platform/internal/availability"
	"github.com/carebridge/telehealth-platform/internal/booking"
	"github.com/carebridge/telehealth-platform/internal/credits"
	"github.com/carebridge/telehealth-platform/internal/http/handlers"
	httpmiddleware "github.com/carebridge/telehealth-platform/internal/http/middleware"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	UsersHandler        *handlers.UsersHandler
	AvailabilityHandler *availability.Handler
	BookingHandler      *booking.Handler
	CreditsHandler      *credits.Handler

	// CreditsRepo enables the lazy monthly allowance grant in the auth
	// middleware.
	CreditsRepo *credits.Repository

	AuthSecret         string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimitPerSec    float64
	RateLimitBurst     int

	// ReadyCheck reports readiness (typically a database ping).
	ReadyCheck func(r *http.Request) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSec > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.ReadyCheck))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated API
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.Auth(cfg.AuthSecret, cfg.CreditsRepo, cfg.Logger))

		if cfg.UsersHandler != nil {
			api.Get("/users/me", cfg.UsersHandler.Me)
			api.Post("/users/role", cfg.UsersHandler.SetRole)
			api.Get("/doctors", cfg.UsersHandler.ListDoctors)
		}
		if cfg.BookingHandler != nil {
			api.Get("/doctors/{doctorID}/slots", cfg.BookingHandler.ListSlots)
			api.Route("/appointments", func(appts chi.Router) {
				appts.Get("/", cfg.BookingHandler.ListMine)
				appts.Post("/", cfg.BookingHandler.Book)
				appts.Post("/{appointmentID}/cancel", cfg.BookingHandler.Cancel)
				appts.Post("/{appointmentID}/complete", cfg.BookingHandler.Complete)
				appts.Put("/{appointmentID}/notes", cfg.BookingHandler.AddNotes)
				appts.Get("/{appointmentID}/token", cfg.BookingHandler.JoinToken)
			})
		}
		if cfg.AvailabilityHandler != nil {
			api.Route("/doctor/availability", func(avail chi.Router) {
				avail.Post("/", cfg.AvailabilityHandler.SetWindow)
				avail.Get("/", cfg.AvailabilityHandler.GetWindows)
			})
		}
		if cfg.CreditsHandler != nil {
			api.Route("/credits", func(cr chi.Router) {
				cr.Get("/", cfg.CreditsHandler.GetAccount)
				cr.Post("/allocate", cfg.CreditsHandler.Allocate)
			})
		}
	})

	return r
}

func healthHandler(ready func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if ready != nil {
			if err := ready(r); err != nil {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
