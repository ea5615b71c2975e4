package cache

import (
	"context"
	"sync"
	"time"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"github.com/google/uuid"
)

// MemoryCache is the single-process CacheService. The run lock ignores the
// TTL because the holder lives in the same process.
type MemoryCache struct {
	runMu sync.Mutex

	mu          sync.RWMutex
	waitlists   map[uuid.UUID][]uuid.UUID
	idempotency map[string]domain.IdempotencyRecord
}

var _ interfaces.CacheService = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		waitlists:   make(map[uuid.UUID][]uuid.UUID),
		idempotency: make(map[string]domain.IdempotencyRecord),
	}
}

func (m *MemoryCache) TryAcquire(_ context.Context, _ time.Duration) (func(), bool, error) {
	if !m.runMu.TryLock() {
		return nil, false, nil
	}
	var once sync.Once
	return func() { once.Do(m.runMu.Unlock) }, true, nil
}

func (m *MemoryCache) SaveWaitlists(_ context.Context, waitlists map[uuid.UUID][]uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.waitlists = make(map[uuid.UUID][]uuid.UUID, len(waitlists))
	for subjectID, students := range waitlists {
		if len(students) == 0 {
			continue
		}
		m.waitlists[subjectID] = append([]uuid.UUID(nil), students...)
	}
	return nil
}

func (m *MemoryCache) GetWaitlist(_ context.Context, subjectID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]uuid.UUID{}, m.waitlists[subjectID]...), nil
}

func (m *MemoryCache) GetAll(_ context.Context) (map[uuid.UUID][]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[uuid.UUID][]uuid.UUID, len(m.waitlists))
	for k, v := range m.waitlists {
		out[k] = append([]uuid.UUID(nil), v...)
	}
	return out, nil
}

func (m *MemoryCache) Clear(ctx context.Context) error {
	return m.SaveWaitlists(ctx, nil)
}

func (m *MemoryCache) GetIdempotency(_ context.Context, key string) (*domain.IdempotencyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.idempotency[key]
	if !ok || record.IsExpired(time.Now()) {
		return nil, nil
	}
	return &record, nil
}

func (m *MemoryCache) PutIdempotency(_ context.Context, record *domain.IdempotencyRecord, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.idempotency[record.Key]; ok && !existing.IsExpired(time.Now()) {
		return false, nil
	}
	stored := *record
	if ttl > 0 {
		stored.ExpiresAt = time.Now().Add(ttl)
	}
	m.idempotency[record.Key] = stored
	return true, nil
}

func (m *MemoryCache) Health(context.Context) error { return nil }

func (m *MemoryCache) Close() error { return nil }
