package video

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Fake is a deterministic in-memory Service for tests and local
// development.
type Fake struct {
	counter atomic.Int64

	// FailCreate makes CreateSession return ErrVideoService.
	FailCreate bool
}

// NewFake returns a fake video service.
func NewFake() *Fake {
	return &Fake{}
}

// CreateSession returns a predictable session identifier.
func (f *Fake) CreateSession(ctx context.Context) (string, error) {
	if f.FailCreate {
		return "", ErrVideoService
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVideoService, err)
	}
	return fmt.Sprintf("fake-session-%d", f.counter.Add(1)), nil
}

// GenerateToken returns a readable fake token.
func (f *Fake) GenerateToken(sessionID string, role Role, expiry time.Time, metadata string) (string, error) {
	return fmt.Sprintf("fake-token.%s.%s.%d", sessionID, role, expiry.Unix()), nil
}
