package allocation

import (
	"sort"

	"github.com/google/uuid"
)

// DefaultMaxRounds matches the number of preferences a student may submit.
const DefaultMaxRounds = 5

// MultiRound is the rank-major allocator. Round r considers every still
// unassigned student's r-th preference, highest merit first, before any
// student's (r+1)-th preference is looked at.
//
// A MaxRounds of zero or less runs DefaultMaxRounds rounds, so the zero
// value is usable.
type MultiRound struct {
	MaxRounds int
}

func (MultiRound) Name() string { return StrategyMultiRound }

// Allocate runs rounds 1..MaxRounds over students and subjects.
// Input order breaks merit ties. A preference naming an unknown subject has
// no slot, so the student is waitlisted under that id like any other miss.
func (m MultiRound) Allocate(students []Student, subjects []Subject) Result {
	res := newResult()
	if len(students) == 0 {
		return res
	}

	maxRounds := m.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	slots := ExpandSlots(subjects)
	assigned := make(map[uuid.UUID]bool, len(students))

	for round := 1; round <= maxRounds; round++ {
		if len(assigned) == len(students) {
			break
		}

		candidates := make([]Student, 0, len(students))
		for _, st := range students {
			if !assigned[st.ID] && len(st.Preferences) >= round {
				candidates = append(candidates, st)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Merit > candidates[j].Merit
		})

		for _, st := range candidates {
			subjectID := st.Preferences[round-1]
			slot, ok := slots.Take(subjectID)
			if !ok {
				res.waitlist(subjectID, st.ID)
				continue
			}
			res.Assignments = append(res.Assignments, Assignment{
				StudentID: st.ID,
				SubjectID: subjectID,
				Section:   cloneSection(slot.Section),
				Priority:  round,
			})
			assigned[st.ID] = true
		}
	}

	return res
}

func cloneSection(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
