package repository

import (
	"context"
	"errors"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SnapshotRepository struct {
	db *gorm.DB
}

func NewSnapshotRepository(db *gorm.DB) interfaces.SnapshotRepository {
	return &SnapshotRepository{
		db: db,
	}
}

var _ interfaces.SnapshotRepository = (*SnapshotRepository)(nil)

func preloadRows(db *gorm.DB) *gorm.DB {
	return db.Order("snapshot_allocations.position ASC")
}

func (r *SnapshotRepository) Create(ctx context.Context, snapshot *domain.Snapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *SnapshotRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Snapshot, error) {
	var snapshot domain.Snapshot
	err := r.db.WithContext(ctx).
		Preload("Allocations", preloadRows).
		First(&snapshot, "snapshot_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

func (r *SnapshotRepository) List(ctx context.Context) ([]*domain.Snapshot, error) {
	var snapshots []*domain.Snapshot
	err := r.db.WithContext(ctx).
		Preload("Allocations", preloadRows).
		Order("created_at DESC").
		Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}
