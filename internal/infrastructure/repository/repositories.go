package repository

import (
	"context"

	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"gorm.io/gorm"
)

// NewRepositories wires every gorm repository onto db.
func NewRepositories(db *gorm.DB) interfaces.Repositories {
	return interfaces.Repositories{
		Subjects:       NewSubjectRepository(db),
		Students:       NewStudentRepository(db),
		Allocations:    NewAllocationRepository(db),
		Snapshots:      NewSnapshotRepository(db),
		ChangeRequests: NewChangeRequestRepository(db),
		Tx:             &gormTransactor{db: db},
	}
}

type gormTransactor struct {
	db *gorm.DB
}

// WithinTransaction hands fn repositories bound to a single transaction.
// Nested Transaction calls in those repositories become savepoints.
func (t *gormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos interfaces.Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}
