package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"
	"elective-allocation/pkg/apperrors"
	"elective-allocation/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultIdempotencyTTL = 24 * time.Hour
)

// IdempotencyService replays the stored response of a mutating request
// repeated with the same Idempotency-Key.
type IdempotencyService struct {
	store interfaces.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

func NewIdempotencyService(store interfaces.IdempotencyStore, ttl time.Duration) *IdempotencyService {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyService{
		store: store,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CheckDuplicateRequest returns the stored record when key was already used
// for the same actor, operation and body. Reusing a key for a different
// request is a CONFLICT.
func (s *IdempotencyService) CheckDuplicateRequest(ctx context.Context, key, operation string, actorID uuid.UUID, requestData any) (*domain.IdempotencyRecord, bool, error) {
	if key == "" {
		return nil, false, nil
	}

	existing, err := s.store.GetIdempotency(ctx, key)
	if err != nil {
		logger.Error("Failed to check idempotency key: %v", err)
		return nil, false, apperrors.Wrap(apperrors.CodeInternal, err, "failed to check idempotency key")
	}
	if existing == nil || existing.IsExpired(s.now()) {
		return nil, false, nil
	}

	if existing.RequestHash != s.generateRequestHash(operation, actorID, requestData) {
		logger.Warn("Idempotency key %s used with different request data", key)
		return nil, false, apperrors.New(apperrors.CodeConflict, "idempotency key already used with different request data")
	}

	logger.Info("Duplicate request detected for idempotency key: %s", key)
	return existing, true, nil
}

// StoreProcessedRequest remembers the response for key. A concurrent
// request that stored first wins.
func (s *IdempotencyService) StoreProcessedRequest(ctx context.Context, key, operation string, actorID uuid.UUID, requestData any, responseData any, statusCode int) error {
	if key == "" {
		return nil
	}

	responseJSON, err := json.Marshal(responseData)
	if err != nil {
		return fmt.Errorf("failed to marshal response data: %w", err)
	}

	now := s.now()
	record := &domain.IdempotencyRecord{
		Key:         key,
		ActorID:     actorID,
		Operation:   operation,
		RequestHash: s.generateRequestHash(operation, actorID, requestData),
		StatusCode:  statusCode,
		Response:    responseJSON,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	stored, err := s.store.PutIdempotency(ctx, record, s.ttl)
	if err != nil {
		logger.Error("Failed to store idempotency key %s: %v", key, err)
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	if stored {
		logger.Debug("Stored idempotency key: %s", key)
	}
	return nil
}

func (s *IdempotencyService) generateRequestHash(operation string, actorID uuid.UUID, requestData any) string {
	data := map[string]any{
		"operation":    operation,
		"actor_id":     actorID.String(),
		"request_data": requestData,
	}

	jsonData, _ := json.Marshal(data)
	hash := sha256.Sum256(jsonData)
	return hex.EncodeToString(hash[:])
}
