package service

import (
	"context"
	"testing"

	"elective-allocation/internal/allocation"
	domain "elective-allocation/internal/domain/allocation"
	"elective-allocation/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveRow struct {
	StudentID uuid.UUID
	SubjectID uuid.UUID
	Section   string
	Priority  int
}

func liveRows(t *testing.T, f *fixture) []liveRow {
	t.Helper()
	live, err := f.repos.Allocations.List(context.Background())
	require.NoError(t, err)
	rows := make([]liveRow, 0, len(live))
	for _, a := range live {
		r := liveRow{StudentID: a.StudentID, SubjectID: a.SubjectID, Priority: a.Priority}
		if a.SectionName != nil {
			r.Section = *a.SectionName
		}
		rows = append(rows, r)
	}
	return rows
}

func TestSnapshotBeforeRun_SkipsEmptyLiveSet(t *testing.T) {
	f := newFixture()
	snap, err := f.snapshots().SnapshotBeforeRun(context.Background(), nil, nil, "note")
	require.NoError(t, err)
	assert.Nil(t, snap)

	all, err := f.snapshots().ListSnapshots(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRollbackToSnapshot_RestoresExactState(t *testing.T) {
	f := newFixture()
	s1 := f.subject(t, "S1", 1)
	s2 := f.subject(t, "S2", 0, domain.SubjectSection{Name: "Lab", Capacity: intPtr(1)})
	a := f.student(t, "a", 9.0, s1, s2)
	b := f.student(t, "b", 8.0, s2, s1)

	svc := newAllocationService(f, allocation.MultiRound{})
	_, err := svc.RunAllocation(context.Background(), nil)
	require.NoError(t, err)
	before := liveRows(t, f)
	require.Len(t, before, 2)

	// A third student takes b's seat in the second run.
	c := f.student(t, "c", 9.9, s2)
	second, err := svc.RunAllocation(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, second.SnapshotID)

	snaps := f.snapshots()
	require.NoError(t, snaps.RollbackToSnapshot(context.Background(), *second.SnapshotID))
	assert.ElementsMatch(t, before, liveRows(t, f))

	flags := map[uuid.UUID]bool{}
	for _, st := range []*domain.Student{a, b, c} {
		loaded, err := f.repos.Students.GetByID(context.Background(), st.StudentID)
		require.NoError(t, err)
		flags[st.StudentID] = loaded.Allocated
	}
	assert.True(t, flags[a.StudentID])
	assert.True(t, flags[b.StudentID])
	assert.False(t, flags[c.StudentID], "students outside the snapshot are reset")

	// Rolling back twice yields the same state.
	require.NoError(t, snaps.RollbackToSnapshot(context.Background(), *second.SnapshotID))
	assert.ElementsMatch(t, before, liveRows(t, f))

	waitlists, err := f.cache.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, waitlists)
}

func TestRollbackToSnapshot_UnknownSnapshot(t *testing.T) {
	f := newFixture()
	s1 := f.subject(t, "S1", 1)
	f.student(t, "a", 9.0, s1)
	_, err := newAllocationService(f, allocation.MultiRound{}).RunAllocation(context.Background(), nil)
	require.NoError(t, err)
	before := liveRows(t, f)

	err = f.snapshots().RollbackToSnapshot(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeSnapshotNotFound))
	assert.Equal(t, before, liveRows(t, f))
}

func TestRollbackAll(t *testing.T) {
	f := newFixture()
	s1 := f.subject(t, "S1", 2)
	a := f.student(t, "a", 9.0, s1)
	_, err := newAllocationService(f, allocation.MultiRound{}).RunAllocation(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, f.snapshots().RollbackAll(context.Background()))
	assert.Empty(t, liveRows(t, f))

	st, err := f.repos.Students.GetByID(context.Background(), a.StudentID)
	require.NoError(t, err)
	assert.False(t, st.Allocated)
}

func TestRollback_SharesRunLock(t *testing.T) {
	f := newFixture()
	release, ok, err := f.cache.TryAcquire(context.Background(), DefaultRunLockTTL)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	err = f.snapshots().RollbackAll(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.CodeRunInProgress))

	err = f.snapshots().RollbackToSnapshot(context.Background(), uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.CodeRunInProgress))
}

func TestListSnapshots_NewestFirst(t *testing.T) {
	f := newFixture()
	s1 := f.subject(t, "S1", 5)
	f.student(t, "a", 9.0, s1)
	svc := newAllocationService(f, allocation.MultiRound{})

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		res, err := svc.RunAllocation(context.Background(), nil)
		require.NoError(t, err)
		if res.SnapshotID != nil {
			ids = append(ids, *res.SnapshotID)
		}
	}
	require.Len(t, ids, 2)

	snaps, err := f.snapshots().ListSnapshots(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, ids[1], snaps[0].SnapshotID)
	assert.Equal(t, ids[0], snaps[1].SnapshotID)
}
