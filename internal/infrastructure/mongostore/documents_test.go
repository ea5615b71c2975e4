package mongostore

import (
	"testing"
	"time"

	domain "elective-allocation/internal/domain/allocation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestStudentDocKeepsRankOrder(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	student := &domain.Student{
		StudentID:  uuid.New(),
		RollNumber: "CS-001",
		CGPA:       8.7,
		Preferences: []domain.StudentPreference{
			{Rank: 2, SubjectID: second},
			{Rank: 1, SubjectID: first},
		},
	}

	doc := newStudentDoc(student)
	assert.Equal(t, []string{first.String(), second.String()}, doc.Preferences)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded studentDoc
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	back, err := decoded.toDomain()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, back.PreferenceIDs())
	assert.Equal(t, 1, back.Preferences[0].Rank)
	assert.Equal(t, student.StudentID, back.Preferences[1].StudentID)
}

func TestSnapshotDocPreservesRows(t *testing.T) {
	section := "Lab"
	actor := uuid.New()
	snap := &domain.Snapshot{
		SnapshotID: uuid.New(),
		CreatedBy:  &actor,
		Note:       "pre-run snapshot",
		CreatedAt:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Allocations: []domain.SnapshotAllocation{
			{StudentID: uuid.New(), SubjectID: uuid.New(), SectionName: &section, Priority: 2},
			{StudentID: uuid.New(), SubjectID: uuid.New(), Priority: 1},
		},
	}

	back, err := newSnapshotDoc(snap).toDomain()
	require.NoError(t, err)
	require.Len(t, back.Allocations, 2)
	assert.Equal(t, &actor, back.CreatedBy)
	assert.Equal(t, "Lab", *back.Allocations[0].SectionName)
	assert.Nil(t, back.Allocations[1].SectionName)
	assert.Equal(t, 1, back.Allocations[1].Position)
	assert.Equal(t, snap.SnapshotID, back.Allocations[0].SnapshotID)
}

func TestToDomainRejectsBadIDs(t *testing.T) {
	_, err := allocationDoc{ID: "not-a-uuid"}.toDomain()
	assert.Error(t, err)

	_, err = changeRequestDoc{
		ID:                 uuid.NewString(),
		StudentID:          uuid.NewString(),
		CurrentSubjectID:   uuid.NewString(),
		RequestedSubjectID: "bogus",
	}.toDomain()
	assert.Error(t, err)
}
