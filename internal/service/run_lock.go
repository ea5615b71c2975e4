package service

import (
	"context"
	"time"

	interfaces "elective-allocation/internal/interfaces/infrastructure"
	"elective-allocation/pkg/apperrors"
)

// DefaultRunLockTTL bounds how long a crashed run can keep the lock.
const DefaultRunLockTTL = 5 * time.Minute

// acquireRunLock takes the exclusive guard shared by runs and rollbacks.
// It fails fast with RUN_IN_PROGRESS instead of waiting.
func acquireRunLock(ctx context.Context, lock interfaces.RunLock, ttl time.Duration) (func(), error) {
	if ttl <= 0 {
		ttl = DefaultRunLockTTL
	}

	release, ok, err := lock.TryAcquire(ctx, ttl)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to acquire run lock")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeRunInProgress, "an allocation run or rollback is already in progress")
	}
	return release, nil
}
