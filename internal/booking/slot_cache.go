package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/carebridge/telehealth-platform/internal/schedule"
	"github.com/carebridge/telehealth-platform/pkg/logging"
)

// SlotCache keeps recently generated slot listings in redis for a short
// TTL. Listings are allowed to be stale: a slot taken after caching is
// rejected at booking time with an overlap conflict, so correctness never
// depends on the cache. Cache failures degrade to regeneration.
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewSlotCache creates a cache. A nil client disables caching.
func NewSlotCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *SlotCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotCache{client: client, ttl: ttl, logger: logger.Component("slot_cache")}
}

func slotKey(doctorID uuid.UUID) string {
	return "slots:doctor:" + doctorID.String()
}

// Get returns the cached listing, or ok=false on miss or error.
func (c *SlotCache) Get(ctx context.Context, doctorID uuid.UUID) (map[string][]schedule.Slot, bool) {
	if c == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, slotKey(doctorID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("slot cache read failed", "error", err, "doctor_id", doctorID)
		}
		return nil, false
	}
	var slots map[string][]schedule.Slot
	if err := json.Unmarshal(payload, &slots); err != nil {
		c.logger.Warn("slot cache payload corrupt", "error", err, "doctor_id", doctorID)
		return nil, false
	}
	return slots, true
}

// Set stores the listing under the TTL.
func (c *SlotCache) Set(ctx context.Context, doctorID uuid.UUID, slots map[string][]schedule.Slot) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, slotKey(doctorID), payload, c.ttl).Err(); err != nil {
		c.logger.Warn("slot cache write failed", "error", err, "doctor_id", doctorID)
	}
}

// Invalidate drops the doctor's listing, called after a successful booking
// or cancellation so the next view reflects it immediately.
func (c *SlotCache) Invalidate(ctx context.Context, doctorID uuid.UUID) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, slotKey(doctorID)).Err(); err != nil {
		c.logger.Warn("slot cache invalidate failed", "error", err, "doctor_id", doctorID)
	}
}
