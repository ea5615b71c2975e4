// Package allocation assigns students to capacity-limited elective slots.
//
// The package is pure: strategies take plain values, never touch storage and
// never mutate their inputs. Persistence, snapshots and side effects live in
// the service layer.
package allocation

import "github.com/google/uuid"

// Student is an allocation candidate. Preferences are subject ids in rank
// order; Merit orders candidates within a round, higher first.
type Student struct {
	ID          uuid.UUID   `json:"id" validate:"uuid_set"`
	Preferences []uuid.UUID `json:"preferences" validate:"required,min=1,dive,uuid_set"`
	Merit       float64     `json:"merit" validate:"gte=0"`
}

// Section is one independently capped part of a subject. A nil Capacity is
// treated as 0 and an empty Name is replaced by its 1-based position.
type Section struct {
	Name     string `json:"name"`
	Capacity *int   `json:"capacity,omitempty"`
}

// Subject is a capacity-limited offering. Capacity is ignored when Sections
// is non-empty.
type Subject struct {
	ID       uuid.UUID `json:"id" validate:"uuid_set"`
	Capacity int       `json:"capacity"`
	Sections []Section `json:"sections,omitempty"`
}

// Assignment places one student in one slot. Priority is the 1-based
// preference rank that was satisfied.
type Assignment struct {
	StudentID uuid.UUID `json:"student_id"`
	SubjectID uuid.UUID `json:"subject_id"`
	Section   *string   `json:"section"`
	Priority  int       `json:"priority"`
}

// Result is the output of a strategy. Waitlists maps a subject id to the
// students that found it full, in the order they were turned away. Entries
// are historical and are kept even when the student is placed later.
type Result struct {
	Assignments []Assignment              `json:"assignments"`
	Waitlists   map[uuid.UUID][]uuid.UUID `json:"waitlists"`
}

func newResult() Result {
	return Result{
		Assignments: []Assignment{},
		Waitlists:   map[uuid.UUID][]uuid.UUID{},
	}
}

func (r *Result) waitlist(subjectID, studentID uuid.UUID) {
	r.Waitlists[subjectID] = append(r.Waitlists[subjectID], studentID)
}
