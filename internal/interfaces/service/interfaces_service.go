package interfaces

import (
	"context"

	domain "elective-allocation/internal/domain/allocation"

	"github.com/google/uuid"
)

// RunResult summarizes one allocation run.
type RunResult struct {
	RunID          uuid.UUID                 `json:"run_id"`
	Strategy       string                    `json:"strategy"`
	AllocatedCount int                       `json:"allocated_count"`
	Waitlists      map[uuid.UUID][]uuid.UUID `json:"waitlists"`
	ReportHandle   string                    `json:"report_handle,omitempty"`
	SnapshotID     *uuid.UUID                `json:"snapshot_id,omitempty"`
}

type SubmitPreferencesRequest struct {
	SubjectIDs []uuid.UUID `json:"subject_ids" validate:"required,min=1,unique,dive,uuid_set"`
}

type CreateChangeRequest struct {
	CurrentSubjectID   uuid.UUID `json:"current_subject_id" validate:"uuid_set"`
	RequestedSubjectID uuid.UUID `json:"requested_subject_id" validate:"uuid_set"`
	Reason             string    `json:"reason" validate:"max=1000"`
}

type DecideChangeRequest struct {
	Approve *bool `json:"approve" validate:"required"`
}

type AllocationService interface {
	RunAllocation(ctx context.Context, actorID *uuid.UUID) (*RunResult, error)
	ListAllocations(ctx context.Context, subjectID *uuid.UUID) ([]*domain.Allocation, error)
	GetWaitlists(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error)
}

type SnapshotService interface {
	SnapshotBeforeRun(ctx context.Context, current []*domain.Allocation, actorID *uuid.UUID, note string) (*domain.Snapshot, error)
	ListSnapshots(ctx context.Context) ([]*domain.Snapshot, error)
	RollbackToSnapshot(ctx context.Context, snapshotID uuid.UUID) error
	RollbackAll(ctx context.Context) error
}

type PreferenceService interface {
	SubmitPreferences(ctx context.Context, studentID uuid.UUID, subjectIDs []uuid.UUID) (*domain.Student, error)
	GetAllocation(ctx context.Context, studentID uuid.UUID) (*domain.Allocation, error)
}

type ChangeRequestService interface {
	Create(ctx context.Context, studentID uuid.UUID, req *CreateChangeRequest) (*domain.ChangeRequest, error)
	List(ctx context.Context, status domain.ChangeRequestStatus) ([]*domain.ChangeRequest, error)
	Decide(ctx context.Context, requestID uuid.UUID, approve bool, deciderID *uuid.UUID) (*domain.ChangeRequest, error)
}
