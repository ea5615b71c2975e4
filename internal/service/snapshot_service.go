package service

import (
	"context"
	"time"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"
	serviceInterfaces "elective-allocation/internal/interfaces/service"
	"elective-allocation/pkg/apperrors"
	"elective-allocation/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var _ serviceInterfaces.SnapshotService = (*SnapshotService)(nil)

// SnapshotService records the live allocation set before runs and restores
// it on demand.
type SnapshotService struct {
	repos     interfaces.Repositories
	lock      interfaces.RunLock
	waitlists interfaces.WaitlistStore
	lockTTL   time.Duration
	now       func() time.Time
}

func NewSnapshotService(
	repos interfaces.Repositories,
	lock interfaces.RunLock,
	waitlists interfaces.WaitlistStore,
	lockTTL time.Duration,
) *SnapshotService {
	return &SnapshotService{
		repos:     repos,
		lock:      lock,
		waitlists: waitlists,
		lockTTL:   lockTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SnapshotBeforeRun stores a verbatim copy of current. It returns nil, nil
// when there is nothing to protect. The caller is expected to hold the run
// lock.
func (s *SnapshotService) SnapshotBeforeRun(ctx context.Context, current []*domain.Allocation, actorID *uuid.UUID, note string) (*domain.Snapshot, error) {
	if len(current) == 0 {
		logger.Debug("No live allocations, skipping snapshot")
		return nil, nil
	}

	snapshot := &domain.Snapshot{
		SnapshotID:  uuid.New(),
		CreatedBy:   actorID,
		Note:        note,
		Allocations: domain.ToSnapshotRows(current),
		CreatedAt:   s.now(),
	}
	if err := s.repos.Snapshots.Create(ctx, snapshot); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to create snapshot")
	}

	logger.WithFields(logrus.Fields{
		"snapshot_id": snapshot.SnapshotID,
		"rows":        len(snapshot.Allocations),
	}).Info("Snapshot created")
	return snapshot, nil
}

func (s *SnapshotService) ListSnapshots(ctx context.Context) ([]*domain.Snapshot, error) {
	snapshots, err := s.repos.Snapshots.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list snapshots")
	}
	return snapshots, nil
}

// RollbackToSnapshot replaces the live set with the snapshot's rows and
// recomputes every student's allocated flag from them.
func (s *SnapshotService) RollbackToSnapshot(ctx context.Context, snapshotID uuid.UUID) error {
	release, err := acquireRunLock(ctx, s.lock, s.lockTTL)
	if err != nil {
		return err
	}
	defer release()

	snapshot, err := s.repos.Snapshots.GetByID(ctx, snapshotID)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to load snapshot")
	}
	if snapshot == nil {
		return apperrors.New(apperrors.CodeSnapshotNotFound, "snapshot %s not found", snapshotID)
	}

	now := s.now()
	allocs := make([]*domain.Allocation, 0, len(snapshot.Allocations))
	studentIDs := make([]uuid.UUID, 0, len(snapshot.Allocations))
	for _, row := range snapshot.Allocations {
		allocs = append(allocs, &domain.Allocation{
			AllocationID: uuid.New(),
			StudentID:    row.StudentID,
			SubjectID:    row.SubjectID,
			SectionName:  domain.CloneString(row.SectionName),
			Priority:     row.Priority,
			AssignedAt:   now,
		})
		studentIDs = append(studentIDs, row.StudentID)
	}

	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		if err := repos.Allocations.ReplaceAll(ctx, allocs); err != nil {
			return err
		}
		if err := repos.Students.ResetAllocated(ctx); err != nil {
			return err
		}
		return repos.Students.MarkAllocated(ctx, studentIDs)
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to restore snapshot %s", snapshotID)
	}

	s.clearWaitlists(ctx)

	logger.WithFields(logrus.Fields{
		"snapshot_id": snapshotID,
		"rows":        len(allocs),
	}).Info("Rolled back to snapshot")
	return nil
}

// RollbackAll deletes every live allocation and clears every flag.
func (s *SnapshotService) RollbackAll(ctx context.Context) error {
	release, err := acquireRunLock(ctx, s.lock, s.lockTTL)
	if err != nil {
		return err
	}
	defer release()

	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		if err := repos.Allocations.DeleteAll(ctx); err != nil {
			return err
		}
		return repos.Students.ResetAllocated(ctx)
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to clear allocations")
	}

	s.clearWaitlists(ctx)

	logger.Info("All allocations rolled back")
	return nil
}

// Stored waitlists describe the run that was just undone.
func (s *SnapshotService) clearWaitlists(ctx context.Context) {
	if s.waitlists == nil {
		return
	}
	if err := s.waitlists.Clear(ctx); err != nil {
		logger.Warn("Failed to clear waitlists: %v", err)
	}
}
