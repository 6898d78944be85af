package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/clearbook/booking-assistant/internal/sessions"
)

const historyTTL = 24 * time.Hour

// HistoryCache keeps a write-through copy of recent session transcripts in
// Redis so the history endpoint does not hit PostgreSQL. Cache failures are
// surfaced to the caller but must never fail a chat turn.
type HistoryCache struct {
	redis *redis.Client
}

// NewHistoryCache creates a cache over the given Redis client.
func NewHistoryCache(client *redis.Client) *HistoryCache {
	if client == nil {
		panic("conversation: redis client required")
	}
	return &HistoryCache{redis: client}
}

// Save replaces the cached transcript for a session.
func (c *HistoryCache) Save(ctx context.Context, sessionID uuid.UUID, messages []sessions.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("conversation: encode history: %w", err)
	}
	if err := c.redis.Set(ctx, historyKey(sessionID), data, historyTTL).Err(); err != nil {
		return fmt.Errorf("conversation: cache history: %w", err)
	}
	return nil
}

// Load returns the cached transcript, or nil when the session is not cached.
func (c *HistoryCache) Load(ctx context.Context, sessionID uuid.UUID) ([]sessions.Message, error) {
	data, err := c.redis.Get(ctx, historyKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation: load history: %w", err)
	}
	var messages []sessions.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("conversation: decode history: %w", err)
	}
	return messages, nil
}

func historyKey(sessionID uuid.UUID) string {
	return fmt.Sprintf("chat_history:%s", sessionID)
}
