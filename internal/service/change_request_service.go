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

var _ serviceInterfaces.ChangeRequestService = (*ChangeRequestService)(nil)

// ChangeRequestService handles requests to move an allocated student to a
// different subject outside an allocation run.
type ChangeRequestService struct {
	repos         interfaces.Repositories
	notifications interfaces.NotificationQueue
	now           func() time.Time
}

// NewChangeRequestService builds the service. notifications may be nil.
func NewChangeRequestService(repos interfaces.Repositories, notifications interfaces.NotificationQueue) *ChangeRequestService {
	return &ChangeRequestService{
		repos:         repos,
		notifications: notifications,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *ChangeRequestService) Create(ctx context.Context, studentID uuid.UUID, req *serviceInterfaces.CreateChangeRequest) (*domain.ChangeRequest, error) {
	if req.CurrentSubjectID == req.RequestedSubjectID {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "requested subject must differ from the current one")
	}

	student, err := s.repos.Students.GetByID(ctx, studentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load student")
	}
	if student == nil {
		return nil, apperrors.New(apperrors.CodeStudentNotFound, "student %s not found", studentID)
	}

	subjects, err := s.repos.Subjects.GetByIDs(ctx, []uuid.UUID{req.CurrentSubjectID, req.RequestedSubjectID})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load subjects")
	}
	if len(subjects) != 2 {
		return nil, apperrors.New(apperrors.CodeSubjectNotFound, "current or requested subject not found")
	}

	alloc, err := s.repos.Allocations.GetByStudent(ctx, studentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load allocation")
	}
	if alloc == nil || alloc.SubjectID != req.CurrentSubjectID {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "student is not allocated to subject %s", req.CurrentSubjectID)
	}

	pending, err := s.repos.ChangeRequests.GetPendingByStudent(ctx, studentID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load change requests")
	}
	if pending != nil {
		return nil, apperrors.New(apperrors.CodeConflict, "student already has a pending change request")
	}

	cr := &domain.ChangeRequest{
		RequestID:          uuid.New(),
		StudentID:          studentID,
		CurrentSubjectID:   req.CurrentSubjectID,
		RequestedSubjectID: req.RequestedSubjectID,
		Reason:             req.Reason,
		Status:             domain.ChangeRequestPending,
	}
	if err := s.repos.ChangeRequests.Create(ctx, cr); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to create change request")
	}

	logger.WithFields(logrus.Fields{
		"request_id": cr.RequestID,
		"student_id": studentID,
	}).Info("Change request created")
	return cr, nil
}

func (s *ChangeRequestService) List(ctx context.Context, status domain.ChangeRequestStatus) ([]*domain.ChangeRequest, error) {
	switch status {
	case "", domain.ChangeRequestPending, domain.ChangeRequestApproved, domain.ChangeRequestDenied:
	default:
		return nil, apperrors.New(apperrors.CodeInvalidInput, "unknown change request status %q", status)
	}

	reqs, err := s.repos.ChangeRequests.List(ctx, status)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list change requests")
	}
	return reqs, nil
}

// Decide approves or denies a pending request. Approval moves the student's
// live allocation to the requested subject.
func (s *ChangeRequestService) Decide(ctx context.Context, requestID uuid.UUID, approve bool, deciderID *uuid.UUID) (*domain.ChangeRequest, error) {
	cr, err := s.repos.ChangeRequests.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load change request")
	}
	if cr == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "change request %s not found", requestID)
	}
	if cr.Status != domain.ChangeRequestPending {
		return nil, apperrors.New(apperrors.CodeConflict, "change request already %s", cr.Status)
	}

	now := s.now()
	cr.DecidedBy = deciderID
	cr.DecidedAt = &now

	if !approve {
		cr.Status = domain.ChangeRequestDenied
		if err := s.repos.ChangeRequests.Update(ctx, cr); err != nil {
			return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to update change request")
		}
		logger.WithField("request_id", requestID).Info("Change request denied")
		return cr, nil
	}

	cr.Status = domain.ChangeRequestApproved
	moved := &domain.Allocation{
		AllocationID: uuid.New(),
		StudentID:    cr.StudentID,
		SubjectID:    cr.RequestedSubjectID,
		Priority:     0,
		AssignedAt:   now,
	}

	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		alloc, err := repos.Allocations.GetByStudent(ctx, cr.StudentID)
		if err != nil {
			return err
		}
		if alloc == nil || alloc.SubjectID != cr.CurrentSubjectID {
			return apperrors.New(apperrors.CodeConflict, "student is no longer allocated to subject %s", cr.CurrentSubjectID)
		}
		if err := repos.Allocations.Reassign(ctx, cr.StudentID, cr.CurrentSubjectID, moved); err != nil {
			return err
		}
		return repos.ChangeRequests.Update(ctx, cr)
	})
	if err != nil {
		if apperrors.GetCode(err) != "" {
			return nil, err
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to apply change request")
	}

	if s.notifications != nil {
		err := s.notifications.Enqueue(ctx, interfaces.NotificationJob{
			Kind:      interfaces.NotificationReassigned,
			StudentID: moved.StudentID,
			SubjectID: moved.SubjectID,
			Priority:  moved.Priority,
			Timestamp: now,
		})
		if err != nil {
			logger.WithField("request_id", requestID).WithError(err).Warn("Failed to queue reassignment notification")
		}
	}

	logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"student_id": cr.StudentID,
		"subject_id": cr.RequestedSubjectID,
	}).Info("Change request approved")
	return cr, nil
}
