package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "elective-allocation/internal/domain/allocation"
	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"github.com/google/uuid"
)

// memoryState is the shared backing store of the in-memory repositories.
// Every read returns copies so callers never alias stored records.
type memoryState struct {
	mu sync.RWMutex

	subjects     map[uuid.UUID]*domain.Subject
	subjectOrder []uuid.UUID

	students     map[uuid.UUID]*domain.Student
	studentOrder []uuid.UUID

	allocations []*domain.Allocation
	snapshots   []*domain.Snapshot

	changeRequests map[uuid.UUID]*domain.ChangeRequest
	requestOrder   []uuid.UUID
}

// NewMemoryRepositories returns repositories backed by process memory. It is
// used by the "memory" database driver and by tests.
func NewMemoryRepositories() interfaces.Repositories {
	st := &memoryState{
		subjects:       make(map[uuid.UUID]*domain.Subject),
		students:       make(map[uuid.UUID]*domain.Student),
		changeRequests: make(map[uuid.UUID]*domain.ChangeRequest),
	}
	repos := interfaces.Repositories{
		Subjects:       &memorySubjectRepository{st: st},
		Students:       &memoryStudentRepository{st: st},
		Allocations:    &memoryAllocationRepository{st: st},
		Snapshots:      &memorySnapshotRepository{st: st},
		ChangeRequests: &memoryChangeRequestRepository{st: st},
	}
	repos.Tx = passthroughTransactor{repos: repos}
	return repos
}

type passthroughTransactor struct {
	repos interfaces.Repositories
}

func (t passthroughTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos interfaces.Repositories) error) error {
	return fn(ctx, t.repos)
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// Subjects

type memorySubjectRepository struct{ st *memoryState }

func (r *memorySubjectRepository) Create(_ context.Context, subject *domain.Subject) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	ensureID(&subject.SubjectID)
	if _, exists := r.st.subjects[subject.SubjectID]; exists {
		return fmt.Errorf("subject %s already exists", subject.SubjectID)
	}
	for _, s := range r.st.subjects {
		if s.Code == subject.Code {
			return fmt.Errorf("subject code %s already exists", subject.Code)
		}
	}

	now := time.Now().UTC()
	subject.CreatedAt, subject.UpdatedAt = now, now
	for i := range subject.Sections {
		ensureID(&subject.Sections[i].SectionID)
		subject.Sections[i].SubjectID = subject.SubjectID
		subject.Sections[i].Position = i
	}

	r.st.subjects[subject.SubjectID] = copySubject(subject)
	r.st.subjectOrder = append(r.st.subjectOrder, subject.SubjectID)
	return nil
}

func (r *memorySubjectRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Subject, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	s, ok := r.st.subjects[id]
	if !ok {
		return nil, nil
	}
	return copySubject(s), nil
}

func (r *memorySubjectRepository) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*domain.Subject, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	out := make([]*domain.Subject, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if s, ok := r.st.subjects[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, copySubject(s))
		}
	}
	return out, nil
}

func (r *memorySubjectRepository) List(_ context.Context) ([]*domain.Subject, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	out := make([]*domain.Subject, 0, len(r.st.subjectOrder))
	for _, id := range r.st.subjectOrder {
		out = append(out, copySubject(r.st.subjects[id]))
	}
	return out, nil
}

// Students

type memoryStudentRepository struct{ st *memoryState }

func (r *memoryStudentRepository) Create(_ context.Context, student *domain.Student) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	ensureID(&student.StudentID)
	if _, exists := r.st.students[student.StudentID]; exists {
		return fmt.Errorf("student %s already exists", student.StudentID)
	}
	for _, s := range r.st.students {
		if s.RollNumber == student.RollNumber {
			return fmt.Errorf("roll number %s already exists", student.RollNumber)
		}
	}

	now := time.Now().UTC()
	student.CreatedAt, student.UpdatedAt = now, now
	for i := range student.Preferences {
		student.Preferences[i].StudentID = student.StudentID
	}

	r.st.students[student.StudentID] = copyStudent(student)
	r.st.studentOrder = append(r.st.studentOrder, student.StudentID)
	return nil
}

func (r *memoryStudentRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Student, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	s, ok := r.st.students[id]
	if !ok {
		return nil, nil
	}
	return copyStudent(s), nil
}

func (r *memoryStudentRepository) ListWithPreferences(_ context.Context) ([]*domain.Student, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	out := make([]*domain.Student, 0, len(r.st.studentOrder))
	for _, id := range r.st.studentOrder {
		if s := r.st.students[id]; len(s.Preferences) > 0 {
			out = append(out, copyStudent(s))
		}
	}
	return out, nil
}

func (r *memoryStudentRepository) SavePreferences(_ context.Context, student *domain.Student) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	s, ok := r.st.students[student.StudentID]
	if !ok {
		return fmt.Errorf("student %s not found", student.StudentID)
	}

	prefs := make([]domain.StudentPreference, len(student.Preferences))
	for i, p := range student.Preferences {
		p.StudentID = student.StudentID
		prefs[i] = p
	}
	sort.SliceStable(prefs, func(i, j int) bool { return prefs[i].Rank < prefs[j].Rank })

	s.Preferences = prefs
	s.PreferencesLocked = student.PreferencesLocked
	s.PreferencesSubmittedAt = copyTime(student.PreferencesSubmittedAt)
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryStudentRepository) MarkAllocated(_ context.Context, ids []uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, id := range ids {
		if s, ok := r.st.students[id]; ok {
			s.Allocated = true
		}
	}
	return nil
}

func (r *memoryStudentRepository) ResetAllocated(_ context.Context) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, s := range r.st.students {
		s.Allocated = false
	}
	return nil
}

// Allocations

type memoryAllocationRepository struct{ st *memoryState }

func (r *memoryAllocationRepository) List(_ context.Context) ([]*domain.Allocation, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	out := make([]*domain.Allocation, 0, len(r.st.allocations))
	for _, a := range r.st.allocations {
		out = append(out, copyAllocation(a))
	}
	return out, nil
}

func (r *memoryAllocationRepository) ListBySubject(_ context.Context, subjectID uuid.UUID) ([]*domain.Allocation, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	var out []*domain.Allocation
	for _, a := range r.st.allocations {
		if a.SubjectID == subjectID {
			out = append(out, copyAllocation(a))
		}
	}
	return out, nil
}

func (r *memoryAllocationRepository) GetByStudent(_ context.Context, studentID uuid.UUID) (*domain.Allocation, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	for _, a := range r.st.allocations {
		if a.StudentID == studentID {
			return copyAllocation(a), nil
		}
	}
	return nil, nil
}

func (r *memoryAllocationRepository) ReplaceAll(_ context.Context, allocs []*domain.Allocation) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	seen := make(map[uuid.UUID]bool, len(allocs))
	next := make([]*domain.Allocation, 0, len(allocs))
	for _, a := range allocs {
		if seen[a.StudentID] {
			return fmt.Errorf("duplicate allocation for student %s", a.StudentID)
		}
		seen[a.StudentID] = true
		ensureID(&a.AllocationID)
		next = append(next, copyAllocation(a))
	}
	r.st.allocations = next
	return nil
}

func (r *memoryAllocationRepository) DeleteAll(_ context.Context) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	r.st.allocations = nil
	return nil
}

func (r *memoryAllocationRepository) Reassign(_ context.Context, studentID, fromSubject uuid.UUID, to *domain.Allocation) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	kept := r.st.allocations[:0:0]
	for _, a := range r.st.allocations {
		if a.StudentID == studentID && a.SubjectID == fromSubject {
			continue
		}
		if a.StudentID == to.StudentID {
			return fmt.Errorf("student %s already holds another allocation", studentID)
		}
		kept = append(kept, a)
	}
	ensureID(&to.AllocationID)
	r.st.allocations = append(kept, copyAllocation(to))
	return nil
}

// Snapshots

type memorySnapshotRepository struct{ st *memoryState }

func (r *memorySnapshotRepository) Create(_ context.Context, snapshot *domain.Snapshot) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	ensureID(&snapshot.SnapshotID)
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	for i := range snapshot.Allocations {
		snapshot.Allocations[i].SnapshotID = snapshot.SnapshotID
	}
	r.st.snapshots = append(r.st.snapshots, copySnapshot(snapshot))
	return nil
}

func (r *memorySnapshotRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Snapshot, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	for _, s := range r.st.snapshots {
		if s.SnapshotID == id {
			return copySnapshot(s), nil
		}
	}
	return nil, nil
}

func (r *memorySnapshotRepository) List(_ context.Context) ([]*domain.Snapshot, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	out := make([]*domain.Snapshot, 0, len(r.st.snapshots))
	for i := len(r.st.snapshots) - 1; i >= 0; i-- {
		out = append(out, copySnapshot(r.st.snapshots[i]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Change requests

type memoryChangeRequestRepository struct{ st *memoryState }

func (r *memoryChangeRequestRepository) Create(_ context.Context, req *domain.ChangeRequest) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	ensureID(&req.RequestID)
	if _, exists := r.st.changeRequests[req.RequestID]; exists {
		return fmt.Errorf("change request %s already exists", req.RequestID)
	}
	now := time.Now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now
	if req.Status == "" {
		req.Status = domain.ChangeRequestPending
	}

	cp := *req
	r.st.changeRequests[req.RequestID] = &cp
	r.st.requestOrder = append(r.st.requestOrder, req.RequestID)
	return nil
}

func (r *memoryChangeRequestRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.ChangeRequest, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	req, ok := r.st.changeRequests[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *memoryChangeRequestRepository) GetPendingByStudent(_ context.Context, studentID uuid.UUID) (*domain.ChangeRequest, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	for _, id := range r.st.requestOrder {
		req := r.st.changeRequests[id]
		if req.StudentID == studentID && req.Status == domain.ChangeRequestPending {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryChangeRequestRepository) List(_ context.Context, status domain.ChangeRequestStatus) ([]*domain.ChangeRequest, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	out := make([]*domain.ChangeRequest, 0, len(r.st.requestOrder))
	for i := len(r.st.requestOrder) - 1; i >= 0; i-- {
		req := r.st.changeRequests[r.st.requestOrder[i]]
		if status != "" && req.Status != status {
			continue
		}
		cp := *req
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryChangeRequestRepository) Update(_ context.Context, req *domain.ChangeRequest) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.changeRequests[req.RequestID]; !ok {
		return fmt.Errorf("change request %s not found", req.RequestID)
	}
	req.UpdatedAt = time.Now().UTC()
	cp := *req
	r.st.changeRequests[req.RequestID] = &cp
	return nil
}

func copySubject(s *domain.Subject) *domain.Subject {
	cp := *s
	cp.Sections = make([]domain.SubjectSection, len(s.Sections))
	for i, sec := range s.Sections {
		if sec.Capacity != nil {
			c := *sec.Capacity
			sec.Capacity = &c
		}
		cp.Sections[i] = sec
	}
	return &cp
}

func copyStudent(s *domain.Student) *domain.Student {
	cp := *s
	cp.Preferences = append([]domain.StudentPreference(nil), s.Preferences...)
	cp.PreferencesSubmittedAt = copyTime(s.PreferencesSubmittedAt)
	return &cp
}

func copyAllocation(a *domain.Allocation) *domain.Allocation {
	cp := *a
	cp.SectionName = domain.CloneString(a.SectionName)
	return &cp
}

func copySnapshot(s *domain.Snapshot) *domain.Snapshot {
	cp := *s
	cp.Allocations = make([]domain.SnapshotAllocation, len(s.Allocations))
	for i, row := range s.Allocations {
		row.SectionName = domain.CloneString(row.SectionName)
		cp.Allocations[i] = row
	}
	if s.CreatedBy != nil {
		id := *s.CreatedBy
		cp.CreatedBy = &id
	}
	return &cp
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
