package service

import (
	"context"
	"testing"
	"time"

	"elective-allocation/internal/infrastructure/cache"
	"elective-allocation/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyService_ReplaysSameRequest(t *testing.T) {
	ctx := context.Background()
	svc := NewIdempotencyService(cache.NewMemoryCache(), time.Hour)
	actor := uuid.New()
	body := map[string]string{"reason": "clash"}

	_, dup, err := svc.CheckDuplicateRequest(ctx, "key-1", "change_request.create", actor, body)
	require.NoError(t, err)
	assert.False(t, dup)

	require.NoError(t, svc.StoreProcessedRequest(ctx, "key-1", "change_request.create", actor, body, map[string]int{"id": 7}, 201))

	record, dup, err := svc.CheckDuplicateRequest(ctx, "key-1", "change_request.create", actor, body)
	require.NoError(t, err)
	require.True(t, dup)
	assert.Equal(t, 201, record.StatusCode)
	assert.JSONEq(t, `{"id":7}`, string(record.Response))
}

func TestIdempotencyService_RejectsReusedKey(t *testing.T) {
	ctx := context.Background()
	svc := NewIdempotencyService(cache.NewMemoryCache(), time.Hour)
	actor := uuid.New()

	require.NoError(t, svc.StoreProcessedRequest(ctx, "key-1", "allocation.run", actor, nil, "ok", 200))

	_, _, err := svc.CheckDuplicateRequest(ctx, "key-1", "allocation.run", uuid.New(), nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))

	_, _, err = svc.CheckDuplicateRequest(ctx, "key-1", "allocation.rollback", actor, nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeConflict))
}

func TestIdempotencyService_EmptyKeyIsIgnored(t *testing.T) {
	ctx := context.Background()
	svc := NewIdempotencyService(cache.NewMemoryCache(), 0)

	require.NoError(t, svc.StoreProcessedRequest(ctx, "", "allocation.run", uuid.New(), nil, "ok", 200))
	_, dup, err := svc.CheckDuplicateRequest(ctx, "", "allocation.run", uuid.New(), nil)
	require.NoError(t, err)
	assert.False(t, dup)
}
