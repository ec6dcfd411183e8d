// Package video wraps the external video-session provider. Sessions are
// created once per booking; join tokens are minted per join. Provider
// failures surface as ErrVideoService so callers can abort cleanly.
package video

import (
	"context"
	"errors"
	"time"
)

// ErrVideoService is returned when the provider call fails or times out.
var ErrVideoService = errors.New("video service unavailable")

// Role is the participant role embedded in a join token.
type Role string

const (
	RolePublisher Role = "publisher"
	RoleModerator Role = "moderator"
)

// Service is the video-session collaborator.
type Service interface {
	// CreateSession provisions a session and returns its identifier.
	CreateSession(ctx context.Context) (string, error)

	// GenerateToken mints a join token for the session, valid until expiry.
	GenerateToken(sessionID string, role Role, expiry time.Time, metadata string) (string, error)
}
