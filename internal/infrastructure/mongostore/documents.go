package mongostore

import (
	"fmt"
	"time"

	domain "elective-allocation/internal/domain/allocation"

	"github.com/google/uuid"
)

// Ids are stored as canonical uuid strings so documents stay readable in
// the mongo shell.

type sectionDoc struct {
	Position int    `bson:"position"`
	Name     string `bson:"name"`
	Capacity *int   `bson:"capacity,omitempty"`
}

type subjectDoc struct {
	ID        string       `bson:"_id"`
	Code      string       `bson:"code"`
	Title     string       `bson:"title"`
	Capacity  int          `bson:"capacity"`
	Sections  []sectionDoc `bson:"sections"`
	CreatedAt time.Time    `bson:"created_at"`
	UpdatedAt time.Time    `bson:"updated_at"`
}

// studentDoc embeds preferences as subject ids in rank order.
type studentDoc struct {
	ID                     string     `bson:"_id"`
	RollNumber             string     `bson:"roll_number"`
	Name                   string     `bson:"name"`
	Email                  string     `bson:"email"`
	CGPA                   float64    `bson:"cgpa"`
	PreferencesLocked      bool       `bson:"preferences_locked"`
	PreferencesSubmittedAt *time.Time `bson:"preferences_submitted_at,omitempty"`
	Allocated              bool       `bson:"allocated"`
	Preferences            []string   `bson:"preferences"`
	CreatedAt              time.Time  `bson:"created_at"`
	UpdatedAt              time.Time  `bson:"updated_at"`
}

type allocationDoc struct {
	ID          string    `bson:"_id"`
	StudentID   string    `bson:"student_id"`
	SubjectID   string    `bson:"subject_id"`
	SectionName *string   `bson:"section_name"`
	Priority    int       `bson:"priority"`
	AssignedAt  time.Time `bson:"assigned_at"`
}

type snapshotRowDoc struct {
	StudentID   string  `bson:"student_id"`
	SubjectID   string  `bson:"subject_id"`
	SectionName *string `bson:"section_name"`
	Priority    int     `bson:"priority"`
}

type snapshotDoc struct {
	ID          string           `bson:"_id"`
	CreatedBy   *string          `bson:"created_by,omitempty"`
	Note        string           `bson:"note"`
	Allocations []snapshotRowDoc `bson:"allocations"`
	CreatedAt   time.Time        `bson:"created_at"`
}

type changeRequestDoc struct {
	ID                 string     `bson:"_id"`
	StudentID          string     `bson:"student_id"`
	CurrentSubjectID   string     `bson:"current_subject_id"`
	RequestedSubjectID string     `bson:"requested_subject_id"`
	Reason             string     `bson:"reason"`
	Status             string     `bson:"status"`
	DecidedBy          *string    `bson:"decided_by,omitempty"`
	DecidedAt          *time.Time `bson:"decided_at,omitempty"`
	CreatedAt          time.Time  `bson:"created_at"`
	UpdatedAt          time.Time  `bson:"updated_at"`
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid stored id %q: %w", s, err)
	}
	return id, nil
}

func optionalIDString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseOptionalID(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := parseID(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func newSubjectDoc(s *domain.Subject) subjectDoc {
	doc := subjectDoc{
		ID:        s.SubjectID.String(),
		Code:      s.Code,
		Title:     s.Title,
		Capacity:  s.Capacity,
		Sections:  make([]sectionDoc, len(s.Sections)),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	for i, sec := range s.Sections {
		doc.Sections[i] = sectionDoc{Position: sec.Position, Name: sec.Name, Capacity: sec.Capacity}
	}
	return doc
}

func (d subjectDoc) toDomain() (*domain.Subject, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	s := &domain.Subject{
		SubjectID: id,
		Code:      d.Code,
		Title:     d.Title,
		Capacity:  d.Capacity,
		Sections:  make([]domain.SubjectSection, len(d.Sections)),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for i, sec := range d.Sections {
		s.Sections[i] = domain.SubjectSection{
			SubjectID: id,
			Position:  sec.Position,
			Name:      sec.Name,
			Capacity:  sec.Capacity,
		}
	}
	return s, nil
}

func newStudentDoc(s *domain.Student) studentDoc {
	return studentDoc{
		ID:                     s.StudentID.String(),
		RollNumber:             s.RollNumber,
		Name:                   s.Name,
		Email:                  s.Email,
		CGPA:                   s.CGPA,
		PreferencesLocked:      s.PreferencesLocked,
		PreferencesSubmittedAt: s.PreferencesSubmittedAt,
		Allocated:              s.Allocated,
		Preferences:            idStrings(rankedPreferenceIDs(s.Preferences)),
		CreatedAt:              s.CreatedAt,
		UpdatedAt:              s.UpdatedAt,
	}
}

func (d studentDoc) toDomain() (*domain.Student, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	s := &domain.Student{
		StudentID:              id,
		RollNumber:             d.RollNumber,
		Name:                   d.Name,
		Email:                  d.Email,
		CGPA:                   d.CGPA,
		PreferencesLocked:      d.PreferencesLocked,
		PreferencesSubmittedAt: d.PreferencesSubmittedAt,
		Allocated:              d.Allocated,
		Preferences:            make([]domain.StudentPreference, len(d.Preferences)),
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
	for i, raw := range d.Preferences {
		subjectID, err := parseID(raw)
		if err != nil {
			return nil, err
		}
		s.Preferences[i] = domain.StudentPreference{StudentID: id, Rank: i + 1, SubjectID: subjectID}
	}
	return s, nil
}

// rankedPreferenceIDs orders preferences by rank without assuming the slice
// is sorted.
func rankedPreferenceIDs(prefs []domain.StudentPreference) []uuid.UUID {
	byRank := make(map[int]uuid.UUID, len(prefs))
	maxRank := 0
	for _, p := range prefs {
		byRank[p.Rank] = p.SubjectID
		if p.Rank > maxRank {
			maxRank = p.Rank
		}
	}
	ids := make([]uuid.UUID, 0, len(prefs))
	for rank := 1; rank <= maxRank; rank++ {
		if id, ok := byRank[rank]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func newAllocationDoc(a *domain.Allocation) allocationDoc {
	return allocationDoc{
		ID:          a.AllocationID.String(),
		StudentID:   a.StudentID.String(),
		SubjectID:   a.SubjectID.String(),
		SectionName: domain.CloneString(a.SectionName),
		Priority:    a.Priority,
		AssignedAt:  a.AssignedAt,
	}
}

func (d allocationDoc) toDomain() (*domain.Allocation, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	studentID, err := parseID(d.StudentID)
	if err != nil {
		return nil, err
	}
	subjectID, err := parseID(d.SubjectID)
	if err != nil {
		return nil, err
	}
	return &domain.Allocation{
		AllocationID: id,
		StudentID:    studentID,
		SubjectID:    subjectID,
		SectionName:  d.SectionName,
		Priority:     d.Priority,
		AssignedAt:   d.AssignedAt,
	}, nil
}

func newSnapshotDoc(s *domain.Snapshot) snapshotDoc {
	doc := snapshotDoc{
		ID:          s.SnapshotID.String(),
		CreatedBy:   optionalIDString(s.CreatedBy),
		Note:        s.Note,
		Allocations: make([]snapshotRowDoc, len(s.Allocations)),
		CreatedAt:   s.CreatedAt,
	}
	for i, row := range s.Allocations {
		doc.Allocations[i] = snapshotRowDoc{
			StudentID:   row.StudentID.String(),
			SubjectID:   row.SubjectID.String(),
			SectionName: domain.CloneString(row.SectionName),
			Priority:    row.Priority,
		}
	}
	return doc
}

func (d snapshotDoc) toDomain() (*domain.Snapshot, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	createdBy, err := parseOptionalID(d.CreatedBy)
	if err != nil {
		return nil, err
	}
	s := &domain.Snapshot{
		SnapshotID:  id,
		CreatedBy:   createdBy,
		Note:        d.Note,
		Allocations: make([]domain.SnapshotAllocation, len(d.Allocations)),
		CreatedAt:   d.CreatedAt,
	}
	for i, row := range d.Allocations {
		studentID, err := parseID(row.StudentID)
		if err != nil {
			return nil, err
		}
		subjectID, err := parseID(row.SubjectID)
		if err != nil {
			return nil, err
		}
		s.Allocations[i] = domain.SnapshotAllocation{
			SnapshotID:  id,
			Position:    i,
			StudentID:   studentID,
			SubjectID:   subjectID,
			SectionName: row.SectionName,
			Priority:    row.Priority,
		}
	}
	return s, nil
}

func newChangeRequestDoc(r *domain.ChangeRequest) changeRequestDoc {
	return changeRequestDoc{
		ID:                 r.RequestID.String(),
		StudentID:          r.StudentID.String(),
		CurrentSubjectID:   r.CurrentSubjectID.String(),
		RequestedSubjectID: r.RequestedSubjectID.String(),
		Reason:             r.Reason,
		Status:             string(r.Status),
		DecidedBy:          optionalIDString(r.DecidedBy),
		DecidedAt:          r.DecidedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (d changeRequestDoc) toDomain() (*domain.ChangeRequest, error) {
	id, err := parseID(d.ID)
	if err != nil {
		return nil, err
	}
	studentID, err := parseID(d.StudentID)
	if err != nil {
		return nil, err
	}
	current, err := parseID(d.CurrentSubjectID)
	if err != nil {
		return nil, err
	}
	requested, err := parseID(d.RequestedSubjectID)
	if err != nil {
		return nil, err
	}
	decidedBy, err := parseOptionalID(d.DecidedBy)
	if err != nil {
		return nil, err
	}
	return &domain.ChangeRequest{
		RequestID:          id,
		StudentID:          studentID,
		CurrentSubjectID:   current,
		RequestedSubjectID: requested,
		Reason:             d.Reason,
		Status:             domain.ChangeRequestStatus(d.Status),
		DecidedBy:          decidedBy,
		DecidedAt:          d.DecidedAt,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}, nil
}
