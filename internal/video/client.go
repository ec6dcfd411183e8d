package video

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/carebridge/telehealth-platform/pkg/logging"
)

// Client talks to the hosted video API over HTTP. Requests authenticate
// with a short-lived application JWT; join tokens are HMAC-signed JWTs the
// provider validates on connect.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	appID       string
	secret      []byte
	tokenExpiry time.Duration
	logger      *logging.Logger
}

// Config holds provider credentials.
type Config struct {
	BaseURL string
	AppID   string
	Secret  string
	Timeout time.Duration

	// TokenExpiry bounds the application tokens minted for API calls.
	TokenExpiry time.Duration
}

// NewClient creates a video API client.
func NewClient(cfg Config, logger *logging.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TokenExpiry <= 0 {
		cfg.TokenExpiry = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		appID:       cfg.AppID,
		secret:      []byte(cfg.Secret),
		tokenExpiry: cfg.TokenExpiry,
		logger:      logger.Component("video"),
	}
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession provisions a new session. The caller's context deadline
// bounds the call; a timeout aborts the enclosing booking.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session/create", nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrVideoService, err)
	}
	appToken, err := c.applicationToken()
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+appToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("create session failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrVideoService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("create session rejected", "status", resp.StatusCode, "body", string(body))
		return "", fmt.Errorf("%w: status %d", ErrVideoService, resp.StatusCode)
	}

	var out createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrVideoService, err)
	}
	if out.SessionID == "" {
		return "", fmt.Errorf("%w: empty session id", ErrVideoService)
	}
	return out.SessionID, nil
}

// GenerateToken mints a join token bound to the session and role.
func (c *Client) GenerateToken(sessionID string, role Role, expiry time.Time, metadata string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"application_id":  c.appID,
		"session_id":      sessionID,
		"role":            string(role),
		"connection_data": metadata,
		"jti":             uuid.NewString(),
		"iat":             now.Unix(),
		"exp":             expiry.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", ErrVideoService, err)
	}
	return signed, nil
}

// applicationToken authenticates API requests.
func (c *Client) applicationToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.appID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.tokenExpiry)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("%w: sign app token: %v", ErrVideoService, err)
	}
	return signed, nil
}
