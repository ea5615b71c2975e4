package repository

import (
	"context"
	"errors"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChangeRequestRepository struct {
	db *gorm.DB
}

func NewChangeRequestRepository(db *gorm.DB) interfaces.ChangeRequestRepository {
	return &ChangeRequestRepository{
		db: db,
	}
}

var _ interfaces.ChangeRequestRepository = (*ChangeRequestRepository)(nil)

func (r *ChangeRequestRepository) Create(ctx context.Context, req *domain.ChangeRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *ChangeRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.ChangeRequest, error) {
	var req domain.ChangeRequest
	err := r.db.WithContext(ctx).First(&req, "request_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *ChangeRequestRepository) GetPendingByStudent(ctx context.Context, studentID uuid.UUID) (*domain.ChangeRequest, error) {
	var req domain.ChangeRequest
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND status = ?", studentID, domain.ChangeRequestPending).
		First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *ChangeRequestRepository) List(ctx context.Context, status domain.ChangeRequestStatus) ([]*domain.ChangeRequest, error) {
	var reqs []*domain.ChangeRequest
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *ChangeRequestRepository) Update(ctx context.Context, req *domain.ChangeRequest) error {
	return r.db.WithContext(ctx).Save(req).Error
}
