package allocation

// Greedy is the single-pass allocator. Students are served in the order the
// caller passes them and each takes the first preference that still has a
// free slot. It never produces waitlists.
type Greedy struct{}

func (Greedy) Name() string { return StrategyGreedy }

func (Greedy) Allocate(students []Student, subjects []Subject) Result {
	res := newResult()
	slots := ExpandSlots(subjects)

	for _, st := range students {
		for i, subjectID := range st.Preferences {
			slot, ok := slots.Take(subjectID)
			if !ok {
				continue
			}
			res.Assignments = append(res.Assignments, Assignment{
				StudentID: st.ID,
				SubjectID: subjectID,
				Section:   cloneSection(slot.Section),
				Priority:  i + 1,
			})
			break
		}
	}

	return res
}
