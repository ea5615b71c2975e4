package repository

import (
	"context"
	"errors"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AllocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) interfaces.AllocationRepository {
	return &AllocationRepository{
		db: db,
	}
}

var _ interfaces.AllocationRepository = (*AllocationRepository)(nil)

func (r *AllocationRepository) List(ctx context.Context) ([]*domain.Allocation, error) {
	var allocs []*domain.Allocation
	err := r.db.WithContext(ctx).
		Order("assigned_at ASC, priority ASC").
		Find(&allocs).Error
	if err != nil {
		return nil, err
	}
	return allocs, nil
}

func (r *AllocationRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*domain.Allocation, error) {
	var allocs []*domain.Allocation
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("assigned_at ASC, priority ASC").
		Find(&allocs).Error
	if err != nil {
		return nil, err
	}
	return allocs, nil
}

func (r *AllocationRepository) GetByStudent(ctx context.Context, studentID uuid.UUID) (*domain.Allocation, error) {
	var alloc domain.Allocation
	err := r.db.WithContext(ctx).First(&alloc, "student_id = ?", studentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &alloc, nil
}

func (r *AllocationRepository) ReplaceAll(ctx context.Context, allocs []*domain.Allocation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.Allocation{}).Error; err != nil {
			return err
		}
		if len(allocs) == 0 {
			return nil
		}
		return tx.CreateInBatches(allocs, 500).Error
	})
}

func (r *AllocationRepository) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&domain.Allocation{}).Error
}

func (r *AllocationRepository) Reassign(ctx context.Context, studentID, fromSubject uuid.UUID, to *domain.Allocation) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ? AND subject_id = ?", studentID, fromSubject).
			Delete(&domain.Allocation{}).Error; err != nil {
			return err
		}
		return tx.Create(to).Error
	})
}
