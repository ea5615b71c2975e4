package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	domain "elective-allocation/internal/domain/allocation"
	"elective-allocation/internal/infrastructure/cache"
	"elective-allocation/internal/infrastructure/repository"
	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	repos interfaces.Repositories
	cache *cache.MemoryCache
}

func newFixture() *fixture {
	return &fixture{
		repos: repository.NewMemoryRepositories(),
		cache: cache.NewMemoryCache(),
	}
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

func (f *fixture) subject(t *testing.T, code string, capacity int, sections ...domain.SubjectSection) *domain.Subject {
	t.Helper()
	for i := range sections {
		sections[i].Position = i
	}
	s := &domain.Subject{Code: code, Title: code, Capacity: capacity, Sections: sections}
	require.NoError(t, f.repos.Subjects.Create(context.Background(), s))
	return s
}

func (f *fixture) student(t *testing.T, roll string, cgpa float64, prefs ...*domain.Subject) *domain.Student {
	t.Helper()
	s := &domain.Student{RollNumber: roll, Name: roll, CGPA: cgpa}
	for i, p := range prefs {
		s.Preferences = append(s.Preferences, domain.StudentPreference{Rank: i + 1, SubjectID: p.SubjectID})
	}
	require.NoError(t, f.repos.Students.Create(context.Background(), s))
	return s
}

func (f *fixture) snapshots() *SnapshotService {
	return NewSnapshotService(f.repos, f.cache, f.cache, DefaultRunLockTTL)
}

type recordingReporter struct {
	calls int
	rows  int
	err   error
}

func (r *recordingReporter) Generate(_ context.Context, runID uuid.UUID, allocs []*domain.Allocation) (string, error) {
	r.calls++
	r.rows = len(allocs)
	if r.err != nil {
		return "", r.err
	}
	return "reports/allocations_" + runID.String() + ".csv", nil
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []interfaces.NotificationJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job interfaces.NotificationJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) StartWorkers() {}
func (q *recordingQueue) StopWorkers()  {}

// failingWaitlists stores nothing.
type failingWaitlists struct{}

var errWaitlistsDown = errors.New("waitlist store unavailable")

func (failingWaitlists) SaveWaitlists(context.Context, map[uuid.UUID][]uuid.UUID) error {
	return errWaitlistsDown
}
func (failingWaitlists) GetWaitlist(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return nil, errWaitlistsDown
}
func (failingWaitlists) GetAll(context.Context) (map[uuid.UUID][]uuid.UUID, error) {
	return nil, errWaitlistsDown
}
func (failingWaitlists) Clear(context.Context) error { return errWaitlistsDown }
