package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"
	"elective-allocation/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	runLockKey        = "allocation:run:lock"
	waitlistKeyFmt    = "allocation:waitlist:%s"
	waitlistIndexKey  = "allocation:waitlist:subjects"
	idempotencyPrefix = "idempotency_key:"
)

// releaseScript deletes the lock only when it still holds our token, so an
// expired holder cannot release a lock that a newer run acquired.
const releaseScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`

type RedisCache struct {
	client *redis.Client
}

var _ interfaces.CacheService = (*RedisCache)(nil)

func NewRedisCache(addr, password string, db int) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisCache{
		client: rdb,
	}
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) TryAcquire(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, runLockKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// The caller's context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.client.Eval(ctx, releaseScript, []string{runLockKey}, token).Err(); err != nil {
			logger.Error("Failed to release run lock: %v", err)
		}
	}
	return release, true, nil
}

// SaveWaitlists replaces the stored waitlists with the given ones.
func (r *RedisCache) SaveWaitlists(ctx context.Context, waitlists map[uuid.UUID][]uuid.UUID) error {
	previous, err := r.client.SMembers(ctx, waitlistIndexKey).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read waitlist index: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, subjectID := range previous {
			pipe.Del(ctx, fmt.Sprintf(waitlistKeyFmt, subjectID))
		}
		pipe.Del(ctx, waitlistIndexKey)

		for subjectID, students := range waitlists {
			if len(students) == 0 {
				continue
			}
			values := make([]interface{}, len(students))
			for i, id := range students {
				values[i] = id.String()
			}
			pipe.RPush(ctx, fmt.Sprintf(waitlistKeyFmt, subjectID), values...)
			pipe.SAdd(ctx, waitlistIndexKey, subjectID.String())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save waitlists: %w", err)
	}
	return nil
}

func (r *RedisCache) GetWaitlist(ctx context.Context, subjectID uuid.UUID) ([]uuid.UUID, error) {
	vals, err := r.client.LRange(ctx, fmt.Sprintf(waitlistKeyFmt, subjectID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get waitlist: %w", err)
	}
	return parseIDs(vals)
}

func (r *RedisCache) GetAll(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error) {
	subjects, err := r.client.SMembers(ctx, waitlistIndexKey).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to read waitlist index: %w", err)
	}

	pipe := r.client.Pipeline()
	cmds := make(map[string]*redis.StringSliceCmd, len(subjects))
	for _, s := range subjects {
		cmds[s] = pipe.LRange(ctx, fmt.Sprintf(waitlistKeyFmt, s), 0, -1)
	}
	if len(cmds) > 0 {
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			return nil, fmt.Errorf("failed to get waitlists: %w", err)
		}
	}

	out := make(map[uuid.UUID][]uuid.UUID, len(cmds))
	for s, cmd := range cmds {
		subjectID, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid subject id in waitlist index: %w", err)
		}
		ids, err := parseIDs(cmd.Val())
		if err != nil {
			return nil, err
		}
		out[subjectID] = ids
	}
	return out, nil
}

func (r *RedisCache) GetIdempotency(ctx context.Context, key string) (*domain.IdempotencyRecord, error) {
	val, err := r.client.Get(ctx, idempotencyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get idempotency key from Redis: %w", err)
	}

	var record domain.IdempotencyRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency key: %w", err)
	}
	return &record, nil
}

func (r *RedisCache) PutIdempotency(ctx context.Context, record *domain.IdempotencyRecord, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("failed to marshal idempotency key: %w", err)
	}

	stored, err := r.client.SetNX(ctx, idempotencyPrefix+record.Key, data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to store idempotency key in Redis: %w", err)
	}
	return stored, nil
}

// Client exposes the underlying client for components sharing the
// connection, such as the Redis notification queue.
func (r *RedisCache) Client() *redis.Client {
	return r.client
}

func (r *RedisCache) Clear(ctx context.Context) error {
	return r.SaveWaitlists(ctx, nil)
}

func (r *RedisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

func parseIDs(vals []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(vals))
	for _, v := range vals {
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("invalid student id in waitlist: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
