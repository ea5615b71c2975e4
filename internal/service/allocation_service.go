package service

import (
	"context"
	"sort"
	"time"

	"elective-allocation/internal/allocation"
	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"
	serviceInterfaces "elective-allocation/internal/interfaces/service"
	"elective-allocation/pkg/apperrors"
	"elective-allocation/pkg/logger"
	"elective-allocation/pkg/tracing"
	"elective-allocation/pkg/validator"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const preRunSnapshotNote = "pre-run snapshot"

var _ serviceInterfaces.AllocationService = (*AllocationService)(nil)

// AllocationService orchestrates allocation runs: it loads candidates,
// runs the configured strategy, snapshots and replaces the live set, then
// fires the report and notifications.
type AllocationService struct {
	repos         interfaces.Repositories
	snapshots     serviceInterfaces.SnapshotService
	strategy      allocation.Strategy
	lock          interfaces.RunLock
	waitlists     interfaces.WaitlistStore
	reporter      interfaces.Reporter
	notifications interfaces.NotificationQueue
	lockTTL       time.Duration
	now           func() time.Time
}

type AllocationOption func(*AllocationService)

// WithReporter enables report generation after each run.
func WithReporter(r interfaces.Reporter) AllocationOption {
	return func(s *AllocationService) { s.reporter = r }
}

// WithNotifications enqueues one notification per allocated student.
func WithNotifications(q interfaces.NotificationQueue) AllocationOption {
	return func(s *AllocationService) { s.notifications = q }
}

func WithRunLockTTL(ttl time.Duration) AllocationOption {
	return func(s *AllocationService) { s.lockTTL = ttl }
}

func WithClock(now func() time.Time) AllocationOption {
	return func(s *AllocationService) { s.now = now }
}

func NewAllocationService(
	repos interfaces.Repositories,
	snapshots serviceInterfaces.SnapshotService,
	strategy allocation.Strategy,
	lock interfaces.RunLock,
	waitlists interfaces.WaitlistStore,
	opts ...AllocationOption,
) *AllocationService {
	s := &AllocationService{
		repos:     repos,
		snapshots: snapshots,
		strategy:  strategy,
		lock:      lock,
		waitlists: waitlists,
		lockTTL:   DefaultRunLockTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunAllocation performs one exclusive allocation run. Report and
// notification failures are logged and never fail the run.
func (s *AllocationService) RunAllocation(ctx context.Context, actorID *uuid.UUID) (result *serviceInterfaces.RunResult, err error) {
	runID := uuid.New()

	ctx, span := tracing.Start(ctx, "allocation.run")
	span.SetString("run_id", runID.String())
	span.SetString("strategy", s.strategy.Name())
	defer func() { span.End(err) }()

	log := logger.WithFields(logrus.Fields{
		"run_id":   runID,
		"strategy": s.strategy.Name(),
	})

	release, err := acquireRunLock(ctx, s.lock, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	result = &serviceInterfaces.RunResult{
		RunID:     runID,
		Strategy:  s.strategy.Name(),
		Waitlists: map[uuid.UUID][]uuid.UUID{},
	}

	subjects, err := s.repos.Subjects.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load subjects")
	}
	students, err := s.repos.Students.ListWithPreferences(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load students")
	}
	span.SetInt("subjects", len(subjects))
	span.SetInt("students", len(students))

	if len(students) == 0 {
		log.Info("No students with preferences, nothing to allocate")
		return result, nil
	}
	if len(subjects) == 0 {
		return nil, apperrors.New(apperrors.CodeNoSubjects, "no subjects available for allocation")
	}

	candidates, targets := s.prepare(log, students, subjects)
	if len(candidates) == 0 {
		log.Warn("No student has a preference for an existing subject, nothing to allocate")
		return result, nil
	}

	outcome := s.strategy.Allocate(candidates, targets)
	if err := allocation.Verify(outcome, candidates, targets); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeMalformedResult, err, "strategy %s produced an invalid result", s.strategy.Name())
	}

	current, err := s.repos.Allocations.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load live allocations")
	}
	// The snapshot is committed before the replace transaction. If the
	// replace fails the snapshot still equals the live set, so restoring it
	// is a no-op.
	snapshot, err := s.snapshots.SnapshotBeforeRun(ctx, current, actorID, preRunSnapshotNote)
	if err != nil {
		return nil, err
	}
	if snapshot != nil {
		result.SnapshotID = &snapshot.SnapshotID
	}

	allocs := s.toAllocations(outcome.Assignments)
	studentIDs := make([]uuid.UUID, len(allocs))
	for i, a := range allocs {
		studentIDs[i] = a.StudentID
	}

	err = s.repos.Tx.WithinTransaction(ctx, func(ctx context.Context, repos interfaces.Repositories) error {
		if err := repos.Allocations.ReplaceAll(ctx, allocs); err != nil {
			return err
		}
		return repos.Students.MarkAllocated(ctx, studentIDs)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to persist allocations")
	}

	result.AllocatedCount = len(allocs)
	result.Waitlists = outcome.Waitlists
	span.SetInt("allocated", len(allocs))

	if s.waitlists != nil {
		if err := s.waitlists.SaveWaitlists(ctx, outcome.Waitlists); err != nil {
			log.WithError(err).Warn("Failed to store waitlists")
		}
	}

	result.ReportHandle = s.generateReport(ctx, log, runID, allocs)
	s.notify(ctx, log, runID, allocs)

	log.WithFields(logrus.Fields{
		"allocated":  result.AllocatedCount,
		"candidates": len(candidates),
		"waitlists":  len(result.Waitlists),
	}).Info("Allocation run completed")
	return result, nil
}

// prepare maps stored records onto engine input. Records that fail
// validation are skipped and preferences naming unknown subjects are
// dropped, each with a warning.
func (s *AllocationService) prepare(log *logrus.Entry, students []*domain.Student, subjects []*domain.Subject) ([]allocation.Student, []allocation.Subject) {
	targets := make([]allocation.Subject, 0, len(subjects))
	known := make(map[uuid.UUID]bool, len(subjects))
	for _, subj := range subjects {
		sections := make([]allocation.Section, 0, len(subj.Sections))
		for _, sec := range subj.Sections {
			sections = append(sections, allocation.Section{Name: sec.Name, Capacity: sec.Capacity})
		}
		target := allocation.Subject{ID: subj.SubjectID, Capacity: subj.Capacity, Sections: sections}
		if err := validator.ValidateStruct(target); err != nil {
			log.WithField("subject_id", subj.SubjectID).WithError(err).Warn("Skipping invalid subject")
			continue
		}
		targets = append(targets, target)
		known[subj.SubjectID] = true
	}

	candidates := make([]allocation.Student, 0, len(students))
	for _, st := range students {
		prefs := make([]uuid.UUID, 0, len(st.Preferences))
		for _, id := range st.PreferenceIDs() {
			if !known[id] {
				log.WithFields(logrus.Fields{
					"student_id": st.StudentID,
					"subject_id": id,
				}).Warn("Dropping preference for unknown subject")
				continue
			}
			prefs = append(prefs, id)
		}

		candidate := allocation.Student{ID: st.StudentID, Preferences: prefs, Merit: st.CGPA}
		if err := validator.ValidateStruct(candidate); err != nil {
			log.WithField("student_id", st.StudentID).WithError(err).Warn("Skipping student")
			continue
		}
		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Merit > candidates[j].Merit
	})
	return candidates, targets
}

func (s *AllocationService) toAllocations(assignments []allocation.Assignment) []*domain.Allocation {
	now := s.now()
	allocs := make([]*domain.Allocation, 0, len(assignments))
	for _, a := range assignments {
		allocs = append(allocs, &domain.Allocation{
			AllocationID: uuid.New(),
			StudentID:    a.StudentID,
			SubjectID:    a.SubjectID,
			SectionName:  domain.CloneString(a.Section),
			Priority:     a.Priority,
			AssignedAt:   now,
		})
	}
	return allocs
}

func (s *AllocationService) generateReport(ctx context.Context, log *logrus.Entry, runID uuid.UUID, allocs []*domain.Allocation) string {
	if s.reporter == nil {
		return ""
	}
	handle, err := s.reporter.Generate(ctx, runID, allocs)
	if err != nil {
		log.WithError(err).Warn("Report generation failed")
		return ""
	}
	return handle
}

func (s *AllocationService) notify(ctx context.Context, log *logrus.Entry, runID uuid.UUID, allocs []*domain.Allocation) {
	if s.notifications == nil {
		return
	}
	failed := 0
	for _, a := range allocs {
		err := s.notifications.Enqueue(ctx, interfaces.NotificationJob{
			Kind:        interfaces.NotificationAllocated,
			RunID:       runID,
			StudentID:   a.StudentID,
			SubjectID:   a.SubjectID,
			SectionName: domain.CloneString(a.SectionName),
			Priority:    a.Priority,
			Timestamp:   a.AssignedAt,
		})
		if err != nil {
			failed++
		}
	}
	if failed > 0 {
		log.WithField("failed", failed).Warn("Some notifications could not be queued")
	}
}

// ListAllocations returns the live set, optionally for one subject.
func (s *AllocationService) ListAllocations(ctx context.Context, subjectID *uuid.UUID) ([]*domain.Allocation, error) {
	var (
		allocs []*domain.Allocation
		err    error
	)
	if subjectID != nil {
		allocs, err = s.repos.Allocations.ListBySubject(ctx, *subjectID)
	} else {
		allocs, err = s.repos.Allocations.List(ctx)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list allocations")
	}
	return allocs, nil
}

// GetWaitlists returns the waitlists stored by the last run.
func (s *AllocationService) GetWaitlists(ctx context.Context) (map[uuid.UUID][]uuid.UUID, error) {
	if s.waitlists == nil {
		return map[uuid.UUID][]uuid.UUID{}, nil
	}
	w, err := s.waitlists.GetAll(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load waitlists")
	}
	return w, nil
}
