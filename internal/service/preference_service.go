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

// DefaultMaxPreferences caps how many subjects a student may rank.
const DefaultMaxPreferences = 5

var _ serviceInterfaces.PreferenceService = (*PreferenceService)(nil)

type PreferenceService struct {
	repos          interfaces.Repositories
	maxPreferences int
	now            func() time.Time
}

func NewPreferenceService(repos interfaces.Repositories, maxPreferences int) *PreferenceService {
	if maxPreferences <= 0 {
		maxPreferences = DefaultMaxPreferences
	}
	return &PreferenceService{
		repos:          repos,
		maxPreferences: maxPreferences,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// SubmitPreferences stores subjectIDs as the student's ranked choices and
// locks them. A student submits exactly once.
func (s *PreferenceService) SubmitPreferences(ctx context.Context, studentID uuid.UUID, subjectIDs []uuid.UUID) (*domain.Student, error) {
	if len(subjectIDs) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "at least one subject must be ranked")
	}
	if len(subjectIDs) > s.maxPreferences {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "at most %d subjects may be ranked", s.maxPreferences)
	}
	seen := make(map[uuid.UUID]bool, len(subjectIDs))
	for _, id := range subjectIDs {
		if id == uuid.Nil {
			return nil, apperrors.New(apperrors.CodeInvalidInput, "subject id must not be empty")
		}
		if seen[id] {
			return nil, apperrors.New(apperrors.CodeInvalidInput, "subject %s is ranked more than once", id)
		}
		seen[id] = true
	}

	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load student")
	}
	if student == nil {
		return nil, apperrors.New(apperrors.CodeStudentNotFound, "student %s not found", studentID)
	}
	if student.PreferencesLocked {
		return nil, apperrors.New(apperrors.CodePreferencesLocked, "preferences already submitted and locked")
	}

	subjects, err := s.repos.Subjects.GetByIDs(ctx, subjectIDs)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load subjects")
	}
	found := make(map[uuid.UUID]bool, len(subjects))
	for _, subj := range subjects {
		found[subj.SubjectID] = true
	}
	for _, id := range subjectIDs {
		if !found[id] {
			return nil, apperrors.New(apperrors.CodeSubjectNotFound, "subject %s not found", id)
		}
	}

	prefs := make([]domain.StudentPreference, len(subjectIDs))
	for i, id := range subjectIDs {
		prefs[i] = domain.StudentPreference{StudentID: studentID, Rank: i + 1, SubjectID: id}
	}
	submittedAt := s.now()
	student.Preferences = prefs
	student.PreferencesLocked = true
	student.PreferencesSubmittedAt = &submittedAt

	if err := s.repos.Students.SavePreferences(ctx, student); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to save preferences")
	}

	logger.WithFields(logrus.Fields{
		"student_id":  studentID,
		"preferences": len(prefs),
	}).Info("Preferences submitted")
	return student, nil
}

// GetAllocation returns the student's live allocation, or nil when the
// student is unallocated.
func (s *PreferenceService) GetAllocation(ctx context.Context, studentID uuid.UUID) (*domain.Allocation, error) {
	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load student")
	}
	if student == nil {
		return nil, apperrors.New(apperrors.CodeStudentNotFound, "student %s not found", studentID)
	}

	alloc, err := s.repos.Allocations.GetByStudent(ctx, studentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load allocation")
	}
	return alloc, nil
}
