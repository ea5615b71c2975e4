package interfaces

import (
	"context"
	"time"

	domain "elective-allocation/internal/domain/allocation"

	"github.com/google/uuid"
)

// RunLock serializes allocation runs and rollbacks. TryAcquire never blocks:
// it returns false when another holder owns the lock.
type RunLock interface {
	TryAcquire(ctx context.Context, ttl time.Duration) (release func(), ok bool, err error)
}

// WaitlistStore keeps the waitlists produced by the last run.
type WaitlistStore interface {
	SaveWaitlists(ctx context.Context, waitlists map[uuid.UUID][]uuid.UUID) error
	GetWaitlist(ctx context.Context, subjectID uuid.UUID) ([]uuid.UUID, error)
	GetAll(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error)
	Clear(ctx context.Context) error
}

// IdempotencyStore keeps responses keyed by Idempotency-Key. Put stores the
// record only if the key is unused and reports whether it did.
type IdempotencyStore interface {
	GetIdempotency(ctx context.Context, key string) (*domain.IdempotencyRecord, error)
	PutIdempotency(ctx context.Context, record *domain.IdempotencyRecord, ttl time.Duration) (bool, error)
}

// CacheService is the full cache surface used at startup and in health checks.
type CacheService interface {
	RunLock
	WaitlistStore
	IdempotencyStore

	Health(ctx context.Context) error
	Close() error
}
