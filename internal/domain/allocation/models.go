package domain

import (
	"time"

	"github.com/google/uuid"
)

// Student is an elective candidate. CGPA is the merit score used to order
// students inside each allocation round.
type Student struct {
	StudentID              uuid.UUID           `json:"student_id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	RollNumber             string              `json:"roll_number" gorm:"unique;not null"`
	Name                   string              `json:"name" gorm:"not null"`
	Email                  string              `json:"email"`
	CGPA                   float64             `json:"cgpa" gorm:"column:cgpa;not null;default:0"`
	PreferencesLocked      bool                `json:"preferences_locked" gorm:"not null;default:false"`
	PreferencesSubmittedAt *time.Time          `json:"preferences_submitted_at,omitempty"`
	Allocated              bool                `json:"allocated" gorm:"not null;default:false"`
	Preferences            []StudentPreference `json:"preferences,omitempty" gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE"`
	CreatedAt              time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt              time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Student) TableName() string { return "students" }

// PreferenceIDs returns the subject ids in rank order.
func (s *Student) PreferenceIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.Preferences))
	for i, p := range s.Preferences {
		ids[i] = p.SubjectID
	}
	return ids
}

// StudentPreference is one ranked choice. Rank starts at 1.
type StudentPreference struct {
	StudentID uuid.UUID `json:"student_id" gorm:"type:uuid;primaryKey"`
	Rank      int       `json:"rank" gorm:"primaryKey;check:rank > 0"`
	SubjectID uuid.UUID `json:"subject_id" gorm:"type:uuid;not null"`
}

func (StudentPreference) TableName() string { return "student_preferences" }

// Subject is an elective offering. When Sections is non-empty the subject
// level Capacity is ignored.
type Subject struct {
	SubjectID uuid.UUID        `json:"subject_id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Code      string           `json:"code" gorm:"unique;not null"`
	Title     string           `json:"title" gorm:"not null"`
	Capacity  int              `json:"capacity" gorm:"not null"`
	Sections  []SubjectSection `json:"sections,omitempty" gorm:"foreignKey:SubjectID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Subject) TableName() string { return "subjects" }

// SubjectSection is an independently capped part of a subject. A nil
// Capacity or an empty Name is defaulted when slots are built.
type SubjectSection struct {
	SectionID uuid.UUID `json:"section_id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	SubjectID uuid.UUID `json:"subject_id" gorm:"type:uuid;not null;index"`
	Position  int       `json:"position" gorm:"not null"`
	Name      string    `json:"name"`
	Capacity  *int      `json:"capacity,omitempty"`
}

func (SubjectSection) TableName() string { return "subject_sections" }

// Allocation is one live assignment. Priority is the preference rank that
// was satisfied; 0 marks an assignment made outside a run.
type Allocation struct {
	AllocationID uuid.UUID `json:"allocation_id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	StudentID    uuid.UUID `json:"student_id" gorm:"type:uuid;not null;uniqueIndex"`
	SubjectID    uuid.UUID `json:"subject_id" gorm:"type:uuid;not null;index"`
	SectionName  *string   `json:"section_name"`
	Priority     int       `json:"priority" gorm:"not null"`
	AssignedAt   time.Time `json:"assigned_at" gorm:"not null"`
}

func (Allocation) TableName() string { return "allocations" }

// Snapshot is an immutable copy of the live allocation set taken before a run.
type Snapshot struct {
	SnapshotID  uuid.UUID            `json:"snapshot_id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	CreatedBy   *uuid.UUID           `json:"created_by,omitempty" gorm:"type:uuid"`
	Note        string               `json:"note"`
	Allocations []SnapshotAllocation `json:"allocations" gorm:"foreignKey:SnapshotID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time            `json:"created_at" gorm:"not null;index"`
}

func (Snapshot) TableName() string { return "allocation_snapshots" }

// SnapshotAllocation is one captured row, kept in its original order.
type SnapshotAllocation struct {
	SnapshotID  uuid.UUID `json:"-" gorm:"type:uuid;primaryKey"`
	Position    int       `json:"-" gorm:"primaryKey"`
	StudentID   uuid.UUID `json:"student_id" gorm:"type:uuid;not null"`
	SubjectID   uuid.UUID `json:"subject_id" gorm:"type:uuid;not null"`
	SectionName *string   `json:"section_name"`
	Priority    int       `json:"priority" gorm:"not null"`
}

func (SnapshotAllocation) TableName() string { return "snapshot_allocations" }

// ChangeRequestStatus is the lifecycle state of a change request.
type ChangeRequestStatus string

const (
	ChangeRequestPending  ChangeRequestStatus = "pending"
	ChangeRequestApproved ChangeRequestStatus = "approved"
	ChangeRequestDenied   ChangeRequestStatus = "denied"
)

// ChangeRequest asks to move a student from one allocated subject to another.
type ChangeRequest struct {
	RequestID          uuid.UUID           `json:"request_id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	StudentID          uuid.UUID           `json:"student_id" gorm:"type:uuid;not null;index"`
	CurrentSubjectID   uuid.UUID           `json:"current_subject_id" gorm:"type:uuid;not null"`
	RequestedSubjectID uuid.UUID           `json:"requested_subject_id" gorm:"type:uuid;not null"`
	Reason             string              `json:"reason"`
	Status             ChangeRequestStatus `json:"status" gorm:"type:text;not null;default:pending"`
	DecidedBy          *uuid.UUID          `json:"decided_by,omitempty" gorm:"type:uuid"`
	DecidedAt          *time.Time          `json:"decided_at,omitempty"`
	CreatedAt          time.Time           `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time           `json:"updated_at" gorm:"autoUpdateTime"`
}

func (ChangeRequest) TableName() string { return "change_requests" }

// ToSnapshotRows copies live allocations into snapshot rows in order.
func ToSnapshotRows(allocs []*Allocation) []SnapshotAllocation {
	rows := make([]SnapshotAllocation, 0, len(allocs))
	for i, a := range allocs {
		rows = append(rows, SnapshotAllocation{
			Position:    i,
			StudentID:   a.StudentID,
			SubjectID:   a.SubjectID,
			SectionName: CloneString(a.SectionName),
			Priority:    a.Priority,
		})
	}
	return rows
}

// CloneString copies an optional string so rows never share a pointer.
func CloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
