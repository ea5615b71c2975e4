package allocation

import (
	"fmt"

	"github.com/google/uuid"
)

// Verify checks that res could have been produced from students and
// subjects: every assignment names a known student once, matches that
// student's preference at its priority, names a real slot, and no slot is
// filled past its capacity. Waitlisted students must be known and must have
// ranked the subject they wait for.
func Verify(res Result, students []Student, subjects []Subject) error {
	if res.Assignments == nil {
		return fmt.Errorf("assignments missing")
	}

	byID := make(map[uuid.UUID]Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}

	slots := ExpandSlots(subjects)
	used := make(map[*Slot]int)
	seen := make(map[uuid.UUID]bool, len(res.Assignments))

	for i, a := range res.Assignments {
		st, ok := byID[a.StudentID]
		if !ok {
			return fmt.Errorf("assignment %d: unknown student %s", i, a.StudentID)
		}
		if seen[a.StudentID] {
			return fmt.Errorf("assignment %d: student %s assigned twice", i, a.StudentID)
		}
		seen[a.StudentID] = true

		if a.Priority < 1 || a.Priority > len(st.Preferences) {
			return fmt.Errorf("assignment %d: priority %d out of range", i, a.Priority)
		}
		if st.Preferences[a.Priority-1] != a.SubjectID {
			return fmt.Errorf("assignment %d: subject %s is not preference %d of student %s",
				i, a.SubjectID, a.Priority, a.StudentID)
		}

		slot := findSlot(slots.BySubject(a.SubjectID), a.Section, used)
		if slot == nil {
			return fmt.Errorf("assignment %d: no slot %s for subject %s", i, sectionLabel(a.Section), a.SubjectID)
		}
		used[slot]++
		if used[slot] > slot.Capacity {
			return fmt.Errorf("assignment %d: slot %s of subject %s over capacity %d",
				i, sectionLabel(a.Section), a.SubjectID, slot.Capacity)
		}
	}

	for subjectID, ids := range res.Waitlists {
		for _, id := range ids {
			st, ok := byID[id]
			if !ok {
				return fmt.Errorf("waitlist of subject %s: unknown student %s", subjectID, id)
			}
			if !ranks(st, subjectID) {
				return fmt.Errorf("waitlist of subject %s: student %s never ranked it", subjectID, id)
			}
		}
	}

	return nil
}

// findSlot returns the first slot matching section that still has room in
// used, falling back to the last match so the caller reports the overflow.
// Section names are not unique within a subject, and strategies fill
// same-named slots in table order.
func findSlot(slots []*Slot, section *string, used map[*Slot]int) *Slot {
	var last *Slot
	for _, s := range slots {
		match := (section == nil && s.Section == nil) ||
			(section != nil && s.Section != nil && *section == *s.Section)
		if !match {
			continue
		}
		if used[s] < s.Capacity {
			return s
		}
		last = s
	}
	return last
}

func ranks(st Student, subjectID uuid.UUID) bool {
	for _, p := range st.Preferences {
		if p == subjectID {
			return true
		}
	}
	return false
}

func sectionLabel(s *string) string {
	if s == nil {
		return "<whole>"
	}
	return *s
}
