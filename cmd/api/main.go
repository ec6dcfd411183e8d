package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/carebridge/telehealth-platform/internal/api/router"
	"github.com/carebridge/telehealth-platform/internal/appointments"
	"github.com/carebridge/telehealth-platform/internal/availability"
	"github.com/carebridge/telehealth-platform/internal/booking"
	appconfig "github.com/carebridge/telehealth-platform/internal/config"
	"github.com/carebridge/telehealth-platform/internal/credits"
	"github.com/carebridge/telehealth-platform/internal/http/handlers"
	"github.com/carebridge/telehealth-platform/internal/notify"
	"github.com/carebridge/telehealth-platform/internal/observability/metrics"
	"github.com/carebridge/telehealth-platform/internal/postgres"
	"github.com/carebridge/telehealth-platform/internal/users"
	"github.com/carebridge/telehealth-platform/internal/video"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting telehealth-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	// Postgres
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis slot cache (optional)
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, slot caching disabled", "error", err)
			redisClient = nil
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	// Video provider: fall back to the fake for local development.
	var videoSvc video.Service
	if cfg.VideoAppID != "" && cfg.VideoPrivateKey != "" {
		videoSvc = video.NewClient(video.Config{
			BaseURL:     cfg.VideoAPIBaseURL,
			AppID:       cfg.VideoAppID,
			Secret:      cfg.VideoPrivateKey,
			Timeout:     cfg.VideoCallTimeout,
			TokenExpiry: cfg.VideoTokenExpiry,
		}, logger)
	} else {
		logger.Warn("video provider not configured, using fake sessions")
		videoSvc = video.NewFake()
	}

	// Repositories
	usersRepo := users.NewRepository(pool)
	windowStore := availability.NewStore(pool, logger)
	apptRepo := appointments.NewRepository(pool)
	creditsRepo := credits.NewRepository(pool, logger)

	// Email: NewSendGridSender returns nil without an API key, which makes
	// NewService fall back to the logging stub.
	var emailSender notify.EmailSender
	if sg := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
	}, logger); sg != nil {
		emailSender = sg
	}
	notifier := notify.NewService(emailSender, usersRepo, logger)

	// Services
	apptSvc := appointments.NewService(pool, apptRepo, creditsRepo, cfg.AppointmentCost, logger).
		WithNotifier(notifier).
		WithObserver(bookingMetrics).
		WithCancelCutoff(cfg.CancelCutoff)
	slotCache := booking.NewSlotCache(redisClient, cfg.SlotCacheTTL, logger)
	bookingSvc := booking.NewService(booking.ServiceConfig{
		Pool:            pool,
		Users:           usersRepo,
		Availability:    windowStore,
		Appointments:    apptRepo,
		Credits:         creditsRepo,
		Video:           videoSvc,
		Cache:           slotCache,
		Metrics:         bookingMetrics,
		Notifier:        notifier,
		Logger:          logger,
		AppointmentCost: cfg.AppointmentCost,
		HorizonDays:     cfg.BookingHorizonDays,
		JoinGrace:       cfg.JoinTokenGrace,
	})

	// Handlers
	routerCfg := &router.Config{
		Logger:              logger,
		UsersHandler:        handlers.NewUsersHandler(usersRepo, logger),
		AvailabilityHandler: availability.NewHandler(windowStore, logger),
		BookingHandler:      booking.NewHandler(bookingSvc, apptSvc, apptRepo, logger),
		CreditsHandler:      credits.NewHandler(creditsRepo, logger),
		CreditsRepo:         creditsRepo,
		AuthSecret:          cfg.AuthJWTSecret,
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  splitOrigins(cfg.CORSAllowedOrigins),
		RateLimitPerSec:     cfg.RateLimitPerSec,
		RateLimitBurst:      cfg.RateLimitBurst,
		ReadyCheck: func(r *http.Request) error {
			pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
	}
	r := router.New(routerCfg)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
