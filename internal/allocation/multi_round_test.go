package allocation

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prefs(names ...string) []uuid.UUID {
	ids := make([]uuid.UUID, len(names))
	for i, n := range names {
		ids[i] = id(n)
	}
	return ids
}

func byStudent(res Result) map[uuid.UUID]Assignment {
	m := make(map[uuid.UUID]Assignment, len(res.Assignments))
	for _, a := range res.Assignments {
		m[a.StudentID] = a
	}
	return m
}

func TestMultiRoundRankMajor(t *testing.T) {
	subjects := []Subject{
		{ID: id("s1"), Sections: []Section{{Name: "A", Capacity: intPtr(1)}}},
		{ID: id("s2"), Sections: []Section{{Name: "A", Capacity: intPtr(1)}}},
	}
	students := []Student{
		{ID: id("a"), Preferences: prefs("s2", "s1"), Merit: 9.5},
		{ID: id("b"), Preferences: prefs("s1", "s2"), Merit: 8.0},
		{ID: id("c"), Preferences: prefs("s1", "s2"), Merit: 7.5},
	}

	res := MultiRound{MaxRounds: 2}.Allocate(students, subjects)
	require.Len(t, res.Assignments, 2)

	got := byStudent(res)
	assert.Equal(t, id("s2"), got[id("a")].SubjectID)
	assert.Equal(t, 1, got[id("a")].Priority)
	assert.Equal(t, "A", *got[id("a")].Section)
	assert.Equal(t, id("s1"), got[id("b")].SubjectID)
	assert.Equal(t, 1, got[id("b")].Priority)
	_, ok := got[id("c")]
	assert.False(t, ok)

	assert.Equal(t, []uuid.UUID{id("c")}, res.Waitlists[id("s1")])
	assert.Equal(t, []uuid.UUID{id("c")}, res.Waitlists[id("s2")])
}

func TestMultiRoundMeritBeatsInputOrder(t *testing.T) {
	subjects := []Subject{{ID: id("s1"), Capacity: 1}, {ID: id("s2"), Capacity: 1}}
	students := []Student{
		{ID: id("low"), Preferences: prefs("s1", "s2"), Merit: 6.0},
		{ID: id("high"), Preferences: prefs("s1", "s2"), Merit: 9.0},
	}

	got := byStudent(MultiRound{}.Allocate(students, subjects))
	assert.Equal(t, id("s1"), got[id("high")].SubjectID)
	assert.Equal(t, id("s2"), got[id("low")].SubjectID)
	assert.Equal(t, 2, got[id("low")].Priority)
}

func TestMultiRoundTiesKeepInputOrder(t *testing.T) {
	subjects := []Subject{{ID: id("s1"), Capacity: 1}}
	students := []Student{
		{ID: id("first"), Preferences: prefs("s1"), Merit: 8.0},
		{ID: id("second"), Preferences: prefs("s1"), Merit: 8.0},
	}

	res := MultiRound{}.Allocate(students, subjects)
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, id("first"), res.Assignments[0].StudentID)
	assert.Equal(t, []uuid.UUID{id("second")}, res.Waitlists[id("s1")])
}

func TestMultiRoundHigherRankWaitsForLaterRound(t *testing.T) {
	// b's second choice is only considered after every first choice.
	subjects := []Subject{{ID: id("s1"), Capacity: 1}, {ID: id("s2"), Capacity: 1}}
	students := []Student{
		{ID: id("b"), Preferences: prefs("s1", "s2"), Merit: 9.0},
		{ID: id("a"), Preferences: prefs("s2"), Merit: 1.0},
		{ID: id("c"), Preferences: prefs("s1", "s2"), Merit: 5.0},
	}

	res := MultiRound{}.Allocate(students, subjects)
	got := byStudent(res)
	assert.Equal(t, id("s1"), got[id("b")].SubjectID)
	assert.Equal(t, id("s2"), got[id("a")].SubjectID)
	_, ok := got[id("c")]
	assert.False(t, ok)
}

func TestMultiRoundWaitlistIsHistorical(t *testing.T) {
	subjects := []Subject{{ID: id("s1"), Capacity: 1}, {ID: id("s2"), Capacity: 1}}
	students := []Student{
		{ID: id("a"), Preferences: prefs("s1"), Merit: 9.0},
		{ID: id("b"), Preferences: prefs("s1", "s2"), Merit: 8.0},
	}

	res := MultiRound{}.Allocate(students, subjects)
	got := byStudent(res)
	assert.Equal(t, id("s2"), got[id("b")].SubjectID)
	assert.Equal(t, []uuid.UUID{id("b")}, res.Waitlists[id("s1")])
}

func TestMultiRoundRespectsMaxRounds(t *testing.T) {
	subjects := []Subject{{ID: id("s1"), Capacity: 0}, {ID: id("s2"), Capacity: 1}}
	students := []Student{{ID: id("a"), Preferences: prefs("s1", "s2"), Merit: 9.0}}

	res := MultiRound{MaxRounds: 1}.Allocate(students, subjects)
	assert.Empty(t, res.Assignments)
	assert.Equal(t, []uuid.UUID{id("a")}, res.Waitlists[id("s1")])
}

func TestMultiRoundWaitlistsUnknownSubjects(t *testing.T) {
	subjects := []Subject{{ID: id("s1"), Capacity: 1}}
	students := []Student{{ID: id("a"), Preferences: prefs("ghost", "s1"), Merit: 9.0}}

	res := MultiRound{}.Allocate(students, subjects)
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, 2, res.Assignments[0].Priority)
	assert.Equal(t, []uuid.UUID{id("a")}, res.Waitlists[id("ghost")])
	require.NoError(t, Verify(res, students, subjects))
}

func TestMultiRoundZeroMaxRoundsUsesDefault(t *testing.T) {
	subjects := []Subject{
		{ID: id("s1"), Capacity: 0},
		{ID: id("s2"), Capacity: 0},
		{ID: id("s3"), Capacity: 0},
		{ID: id("s4"), Capacity: 0},
		{ID: id("s5"), Capacity: 1},
	}
	students := []Student{{ID: id("a"), Preferences: prefs("s1", "s2", "s3", "s4", "s5"), Merit: 6.0}}

	res := MultiRound{}.Allocate(students, subjects)
	require.Len(t, res.Assignments, 1)
	assert.Equal(t, DefaultMaxRounds, res.Assignments[0].Priority)

	res = MultiRound{MaxRounds: 4}.Allocate(students, subjects)
	assert.Empty(t, res.Assignments)
}

func TestMultiRoundEmptyInput(t *testing.T) {
	res := MultiRound{}.Allocate(nil, []Subject{{ID: id("s1"), Capacity: 1}})
	assert.Empty(t, res.Assignments)
	assert.Empty(t, res.Waitlists)
	assert.NotNil(t, res.Assignments)
}

func TestMultiRoundDoesNotMutateStudents(t *testing.T) {
	subjects := []Subject{{ID: id("s1"), Capacity: 2}}
	students := []Student{
		{ID: id("a"), Preferences: prefs("s1"), Merit: 1.0},
		{ID: id("b"), Preferences: prefs("s1"), Merit: 2.0},
	}

	MultiRound{}.Allocate(students, subjects)
	assert.Equal(t, id("a"), students[0].ID)
	assert.Equal(t, id("b"), students[1].ID)
}

// Properties over random inputs: at most one assignment per student, capacity
// never exceeded, and every turned-away candidate lands on the waitlist.
func TestMultiRoundProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for iter := 0; iter < 50; iter++ {
		subjects := make([]Subject, 4)
		capacity := map[string]int{}
		for i := range subjects {
			sid := id(fmt.Sprintf("subject-%d", i))
			if i%2 == 0 {
				c := rng.Intn(4)
				subjects[i] = Subject{ID: sid, Capacity: c}
				capacity[sid.String()+"/"] = c
				continue
			}
			a, b := rng.Intn(3), rng.Intn(3)
			subjects[i] = Subject{ID: sid, Sections: []Section{
				{Name: "A", Capacity: intPtr(a)},
				{Name: "B", Capacity: intPtr(b)},
			}}
			capacity[sid.String()+"/A"] = a
			capacity[sid.String()+"/B"] = b
		}

		students := make([]Student, 12)
		for i := range students {
			perm := rng.Perm(len(subjects))
			n := 1 + rng.Intn(len(subjects))
			p := make([]uuid.UUID, n)
			for k := 0; k < n; k++ {
				p[k] = subjects[perm[k]].ID
			}
			students[i] = Student{
				ID:          id(fmt.Sprintf("student-%d", i)),
				Preferences: p,
				Merit:       float64(rng.Intn(5)),
			}
		}

		res := MultiRound{MaxRounds: 4}.Allocate(students, subjects)

		seen := map[uuid.UUID]bool{}
		used := map[string]int{}
		for _, a := range res.Assignments {
			require.False(t, seen[a.StudentID], "student assigned twice")
			seen[a.StudentID] = true
			key := a.SubjectID.String() + "/"
			if a.Section != nil {
				key += *a.Section
			}
			used[key]++
		}
		for key, n := range used {
			assert.LessOrEqual(t, n, capacity[key])
		}

		// A student that stays unassigned was turned away at every rank it had.
		for _, st := range students {
			if seen[st.ID] {
				continue
			}
			for _, sid := range st.Preferences {
				assert.Contains(t, res.Waitlists[sid], st.ID)
			}
		}
	}
}
