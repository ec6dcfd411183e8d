package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	// Redis cache for slot listings
	RedisAddr     string
	RedisPassword string
	SlotCacheTTL  time.Duration

	// Auth
	AuthJWTSecret string

	// Video session provider
	VideoAPIBaseURL   string
	VideoAppID        string
	VideoPrivateKey   string
	VideoTokenExpiry  time.Duration
	VideoCallTimeout  time.Duration
	JoinTokenGrace    time.Duration

	// Booking policy
	AppointmentCost    int
	CancelCutoff       time.Duration
	BookingHorizonDays int

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	CORSAllowedOrigins string
	RateLimitPerSec    float64
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SlotCacheTTL:  getEnvAsDuration("SLOT_CACHE_TTL", 30*time.Second),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		VideoAPIBaseURL:  getEnv("VIDEO_API_BASE_URL", "https://video.api.vonage.com"),
		VideoAppID:       getEnv("VIDEO_APP_ID", ""),
		VideoPrivateKey:  getEnv("VIDEO_PRIVATE_KEY", ""),
		VideoTokenExpiry: getEnvAsDuration("VIDEO_TOKEN_EXPIRY", 5*time.Minute),
		VideoCallTimeout: getEnvAsDuration("VIDEO_CALL_TIMEOUT", 10*time.Second),
		JoinTokenGrace:   getEnvAsDuration("JOIN_TOKEN_GRACE", 15*time.Minute),

		AppointmentCost:    getEnvAsInt("APPOINTMENT_COST_CREDITS", 2),
		CancelCutoff:       getEnvAsDuration("CANCEL_CUTOFF", 30*time.Minute),
		BookingHorizonDays: getEnvAsInt("BOOKING_HORIZON_DAYS", 4),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "CareBridge"),

		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		RateLimitPerSec:    getEnvAsFloat("RATE_LIMIT_PER_SEC", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
