package repository

import (
	"context"
	"testing"
	"time"

	domain "elective-allocation/internal/domain/allocation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStudentsWithPreferences(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()

	subj := &domain.Subject{Code: "CS501", Title: "Compilers", Capacity: 10}
	require.NoError(t, repos.Subjects.Create(ctx, subj))
	assert.NotEqual(t, uuid.Nil, subj.SubjectID)

	with := &domain.Student{RollNumber: "R1", Name: "A", Preferences: []domain.StudentPreference{{Rank: 1, SubjectID: subj.SubjectID}}}
	without := &domain.Student{RollNumber: "R2", Name: "B"}
	require.NoError(t, repos.Students.Create(ctx, with))
	require.NoError(t, repos.Students.Create(ctx, without))
	assert.Error(t, repos.Students.Create(ctx, &domain.Student{RollNumber: "R1"}))

	list, err := repos.Students.ListWithPreferences(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, with.StudentID, list[0].StudentID)

	list[0].Preferences[0].Rank = 99
	again, err := repos.Students.GetByID(ctx, with.StudentID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Preferences[0].Rank)

	missing, err := repos.Students.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryAllocationsReplaceAndReassign(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	student, s1, s2 := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, repos.Allocations.ReplaceAll(ctx, []*domain.Allocation{
		{StudentID: student, SubjectID: s1, Priority: 1},
	}))
	err := repos.Allocations.ReplaceAll(ctx, []*domain.Allocation{
		{StudentID: student, SubjectID: s1},
		{StudentID: student, SubjectID: s2},
	})
	assert.Error(t, err)

	live, err := repos.Allocations.List(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)

	require.NoError(t, repos.Allocations.Reassign(ctx, student, s1, &domain.Allocation{StudentID: student, SubjectID: s2}))
	got, err := repos.Allocations.GetByStudent(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, s2, got.SubjectID)
	assert.Equal(t, 0, got.Priority)

	require.NoError(t, repos.Allocations.DeleteAll(ctx))
	live, err = repos.Allocations.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestMemorySnapshotsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	older := &domain.Snapshot{Note: "older", CreatedAt: base}
	newer := &domain.Snapshot{Note: "newer", CreatedAt: base.Add(time.Hour)}
	require.NoError(t, repos.Snapshots.Create(ctx, newer))
	require.NoError(t, repos.Snapshots.Create(ctx, older))

	list, err := repos.Snapshots.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Note)
	assert.Equal(t, "older", list[1].Note)
}
