package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord is a stored response replayed for a repeated
// Idempotency-Key. RequestHash binds the key to one actor and one body.
type IdempotencyRecord struct {
	Key         string          `json:"key"`
	ActorID     uuid.UUID       `json:"actor_id"`
	Operation   string          `json:"operation"`
	RequestHash string          `json:"request_hash"`
	StatusCode  int             `json:"status_code"`
	Response    json.RawMessage `json:"response"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

func (r *IdempotencyRecord) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}
