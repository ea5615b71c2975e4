package repository

import (
	"context"
	"errors"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) interfaces.StudentRepository {
	return &StudentRepository{
		db: db,
	}
}

var _ interfaces.StudentRepository = (*StudentRepository)(nil)

func preloadPreferences(db *gorm.DB) *gorm.DB {
	return db.Order("student_preferences.rank ASC")
}

func (r *StudentRepository) Create(ctx context.Context, student *domain.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	var student domain.Student
	err := r.db.WithContext(ctx).
		Preload("Preferences", preloadPreferences).
		First(&student, "student_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &student, nil
}

func (r *StudentRepository) ListWithPreferences(ctx context.Context) ([]*domain.Student, error) {
	var students []*domain.Student
	err := r.db.WithContext(ctx).
		Preload("Preferences", preloadPreferences).
		Where("EXISTS (SELECT 1 FROM student_preferences sp WHERE sp.student_id = students.student_id)").
		Order("cgpa DESC, roll_number ASC").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (r *StudentRepository) SavePreferences(ctx context.Context, student *domain.Student) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("student_id = ?", student.StudentID).
			Delete(&domain.StudentPreference{}).Error; err != nil {
			return err
		}

		if len(student.Preferences) > 0 {
			for i := range student.Preferences {
				student.Preferences[i].StudentID = student.StudentID
			}
			if err := tx.Create(&student.Preferences).Error; err != nil {
				return err
			}
		}

		return tx.Model(&domain.Student{}).
			Where("student_id = ?", student.StudentID).
			Updates(map[string]interface{}{
				"preferences_locked":       student.PreferencesLocked,
				"preferences_submitted_at": student.PreferencesSubmittedAt,
			}).Error
	})
}

func (r *StudentRepository) MarkAllocated(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.Student{}).
		Where("student_id IN ?", ids).
		Update("allocated", true).Error
}

func (r *StudentRepository) ResetAllocated(ctx context.Context) error {
	return r.db.WithContext(ctx).
		Model(&domain.Student{}).
		Where("allocated = ?", true).
		Update("allocated", false).Error
}
