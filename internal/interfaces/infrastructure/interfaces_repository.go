package interfaces

import (
	"context"
	domain "elective-allocation/internal/domain/allocation"

	"github.com/google/uuid"
)

type SubjectRepository interface {
	Create(ctx context.Context, subject *domain.Subject) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Subject, error)
	// List returns every subject with its sections in position order.
	List(ctx context.Context) ([]*domain.Subject, error)
}

type StudentRepository interface {
	Create(ctx context.Context, student *domain.Student) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error)
	// ListWithPreferences returns students that have at least one preference,
	// preferences sorted by rank.
	ListWithPreferences(ctx context.Context) ([]*domain.Student, error)
	// SavePreferences replaces the student's ranked preferences and stores
	// the lock flag and submission time from student.
	SavePreferences(ctx context.Context, student *domain.Student) error
	MarkAllocated(ctx context.Context, ids []uuid.UUID) error
	// ResetAllocated clears the allocated flag of every student.
	ResetAllocated(ctx context.Context) error
}

type AllocationRepository interface {
	List(ctx context.Context) ([]*domain.Allocation, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*domain.Allocation, error)
	GetByStudent(ctx context.Context, studentID uuid.UUID) (*domain.Allocation, error)
	// ReplaceAll swaps the whole live set for allocs.
	ReplaceAll(ctx context.Context, allocs []*domain.Allocation) error
	DeleteAll(ctx context.Context) error
	// Reassign deletes the student's allocation for fromSubject and stores to.
	Reassign(ctx context.Context, studentID, fromSubject uuid.UUID, to *domain.Allocation) error
}

type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *domain.Snapshot) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Snapshot, error)
	// List returns snapshots newest first with their rows.
	List(ctx context.Context) ([]*domain.Snapshot, error)
}

type ChangeRequestRepository interface {
	Create(ctx context.Context, req *domain.ChangeRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ChangeRequest, error)
	GetPendingByStudent(ctx context.Context, studentID uuid.UUID) (*domain.ChangeRequest, error)
	// List filters by status unless status is empty.
	List(ctx context.Context, status domain.ChangeRequestStatus) ([]*domain.ChangeRequest, error)
	Update(ctx context.Context, req *domain.ChangeRequest) error
}

// Repositories bundles one store's repositories.
type Repositories struct {
	Subjects       SubjectRepository
	Students       StudentRepository
	Allocations    AllocationRepository
	Snapshots      SnapshotRepository
	ChangeRequests ChangeRequestRepository
	Tx             Transactor
}

// Transactor runs fn against repositories bound to one transaction. Stores
// without transactions run fn against their plain repositories.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
