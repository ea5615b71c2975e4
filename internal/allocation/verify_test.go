package allocation

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifyFixture() ([]Student, []Subject) {
	subjects := []Subject{
		{ID: id("s1"), Capacity: 1},
		{ID: id("s2"), Sections: []Section{{Name: "A", Capacity: intPtr(1)}}},
	}
	students := []Student{
		{ID: id("a"), Preferences: prefs("s1", "s2"), Merit: 9},
		{ID: id("b"), Preferences: prefs("s1", "s2"), Merit: 8},
	}
	return students, subjects
}

func TestVerifyAcceptsEngineOutput(t *testing.T) {
	students, subjects := verifyFixture()

	require.NoError(t, Verify(MultiRound{}.Allocate(students, subjects), students, subjects))
	require.NoError(t, Verify(Greedy{}.Allocate(students, subjects), students, subjects))
}

func TestVerifyRejectsMalformedResults(t *testing.T) {
	students, subjects := verifyFixture()
	sectionA := "A"
	sectionZ := "Z"

	cases := map[string]Result{
		"nil assignments": {},
		"unknown student": {Assignments: []Assignment{
			{StudentID: id("ghost"), SubjectID: id("s1"), Priority: 1},
		}},
		"duplicate student": {Assignments: []Assignment{
			{StudentID: id("a"), SubjectID: id("s1"), Priority: 1},
			{StudentID: id("a"), SubjectID: id("s2"), Section: &sectionA, Priority: 2},
		}},
		"priority mismatch": {Assignments: []Assignment{
			{StudentID: id("a"), SubjectID: id("s2"), Section: &sectionA, Priority: 1},
		}},
		"priority out of range": {Assignments: []Assignment{
			{StudentID: id("a"), SubjectID: id("s1"), Priority: 0},
		}},
		"unknown section": {Assignments: []Assignment{
			{StudentID: id("a"), SubjectID: id("s2"), Section: &sectionZ, Priority: 2},
		}},
		"over capacity": {Assignments: []Assignment{
			{StudentID: id("a"), SubjectID: id("s1"), Priority: 1},
			{StudentID: id("b"), SubjectID: id("s1"), Priority: 1},
		}},
		"waitlist for unranked subject": {
			Assignments: []Assignment{},
			Waitlists:   map[uuid.UUID][]uuid.UUID{id("nope"): {id("a")}},
		},
		"waitlist unknown student": {
			Assignments: []Assignment{},
			Waitlists:   map[uuid.UUID][]uuid.UUID{id("s1"): {id("ghost")}},
		},
	}

	for name, res := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Verify(res, students, subjects))
		})
	}
}

func TestVerifyAcceptsRepeatedSectionNames(t *testing.T) {
	cases := map[string][]Section{
		"explicit duplicates": {{Name: "A", Capacity: intPtr(1)}, {Name: "A", Capacity: intPtr(1)}},
		"default collides":    {{Name: "S2", Capacity: intPtr(1)}, {Capacity: intPtr(1)}},
	}

	for name, sections := range cases {
		t.Run(name, func(t *testing.T) {
			subjects := []Subject{{ID: id("s1"), Sections: sections}}
			students := []Student{
				{ID: id("a"), Preferences: prefs("s1"), Merit: 9},
				{ID: id("b"), Preferences: prefs("s1"), Merit: 8},
			}

			for _, strategy := range []Strategy{MultiRound{}, Greedy{}} {
				res := strategy.Allocate(students, subjects)
				require.Len(t, res.Assignments, 2, strategy.Name())
				assert.NoError(t, Verify(res, students, subjects), strategy.Name())
			}
		})
	}
}

func TestVerifyRepeatedSectionNamesStillCapped(t *testing.T) {
	subjects := []Subject{{ID: id("s1"), Sections: []Section{
		{Name: "A", Capacity: intPtr(1)},
		{Name: "A", Capacity: intPtr(1)},
	}}}
	students := []Student{
		{ID: id("a"), Preferences: prefs("s1"), Merit: 9},
		{ID: id("b"), Preferences: prefs("s1"), Merit: 8},
		{ID: id("c"), Preferences: prefs("s1"), Merit: 7},
	}
	sectionA := "A"
	res := Result{Assignments: []Assignment{
		{StudentID: id("a"), SubjectID: id("s1"), Section: &sectionA, Priority: 1},
		{StudentID: id("b"), SubjectID: id("s1"), Section: &sectionA, Priority: 1},
		{StudentID: id("c"), SubjectID: id("s1"), Section: &sectionA, Priority: 1},
	}}

	assert.ErrorContains(t, Verify(res, students, subjects), "over capacity")
}
