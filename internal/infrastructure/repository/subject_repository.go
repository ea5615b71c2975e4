package repository

import (
	"context"
	"errors"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubjectRepository struct {
	db *gorm.DB
}

func NewSubjectRepository(db *gorm.DB) interfaces.SubjectRepository {
	return &SubjectRepository{
		db: db,
	}
}

var _ interfaces.SubjectRepository = (*SubjectRepository)(nil)

func preloadSections(db *gorm.DB) *gorm.DB {
	return db.Order("subject_sections.position ASC")
}

// Create inserts the subject and its sections. Section positions follow
// slice order.
func (r *SubjectRepository) Create(ctx context.Context, subject *domain.Subject) error {
	for i := range subject.Sections {
		subject.Sections[i].Position = i
	}
	return r.db.WithContext(ctx).Create(subject).Error
}

func (r *SubjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Subject, error) {
	var subject domain.Subject
	err := r.db.WithContext(ctx).
		Preload("Sections", preloadSections).
		First(&subject, "subject_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subject, nil
}

func (r *SubjectRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Subject, error) {
	var subjects []*domain.Subject
	if len(ids) == 0 {
		return subjects, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Sections", preloadSections).
		Where("subject_id IN ?", ids).
		Find(&subjects).Error
	if err != nil {
		return nil, err
	}
	return subjects, nil
}

func (r *SubjectRepository) List(ctx context.Context) ([]*domain.Subject, error) {
	var subjects []*domain.Subject
	err := r.db.WithContext(ctx).
		Preload("Sections", preloadSections).
		Order("code ASC").
		Find(&subjects).Error
	if err != nil {
		return nil, err
	}
	return subjects, nil
}
