package allocation

import (
	"fmt"

	"github.com/google/uuid"
)

// Slot is one assignable unit of capacity. Section is nil for a subject
// without sections.
type Slot struct {
	SubjectID uuid.UUID
	Section   *string
	Capacity  int
	Remaining int
}

// SlotTable is the ordered set of slots for one run. It owns its slots;
// callers' subjects are never modified.
type SlotTable struct {
	Slots     []*Slot
	bySubject map[uuid.UUID][]*Slot
}

// ExpandSlots builds the slot table for subjects. A subject with sections
// gets one slot per section in section order, anything else gets exactly one
// slot. Missing or non-positive capacities become 0, which yields a slot that
// can never be taken.
func ExpandSlots(subjects []Subject) *SlotTable {
	t := &SlotTable{
		Slots:     make([]*Slot, 0, len(subjects)),
		bySubject: make(map[uuid.UUID][]*Slot, len(subjects)),
	}

	for _, subj := range subjects {
		if len(subj.Sections) == 0 {
			t.add(&Slot{
				SubjectID: subj.ID,
				Capacity:  clampCapacity(subj.Capacity),
			})
			continue
		}

		for i, sec := range subj.Sections {
			name := sec.Name
			if name == "" {
				name = fmt.Sprintf("S%d", i+1)
			}
			capacity := 0
			if sec.Capacity != nil {
				capacity = clampCapacity(*sec.Capacity)
			}
			t.add(&Slot{
				SubjectID: subj.ID,
				Section:   &name,
				Capacity:  capacity,
			})
		}
	}

	return t
}

func (t *SlotTable) add(s *Slot) {
	s.Remaining = s.Capacity
	t.Slots = append(t.Slots, s)
	t.bySubject[s.SubjectID] = append(t.bySubject[s.SubjectID], s)
}

// BySubject returns the slots of a subject in table order.
func (t *SlotTable) BySubject(subjectID uuid.UUID) []*Slot {
	return t.bySubject[subjectID]
}

// Has reports whether the subject contributed any slot.
func (t *SlotTable) Has(subjectID uuid.UUID) bool {
	_, ok := t.bySubject[subjectID]
	return ok
}

// Take claims a seat in the first slot of subjectID that still has room.
func (t *SlotTable) Take(subjectID uuid.UUID) (*Slot, bool) {
	for _, s := range t.bySubject[subjectID] {
		if s.Remaining > 0 {
			s.Remaining--
			return s, true
		}
	}
	return nil, false
}

func clampCapacity(c int) int {
	if c < 0 {
		return 0
	}
	return c
}
