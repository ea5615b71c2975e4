package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationAllocated  NotificationKind = "allocated"
	NotificationReassigned NotificationKind = "reassigned"
)

// NotificationJob tells one student where they were placed.
type NotificationJob struct {
	Kind        NotificationKind `json:"kind"`
	RunID       uuid.UUID        `json:"run_id"`
	StudentID   uuid.UUID        `json:"student_id"`
	SubjectID   uuid.UUID        `json:"subject_id"`
	SectionName *string          `json:"section_name,omitempty"`
	Priority    int              `json:"priority"`
	Timestamp   time.Time        `json:"timestamp"`
	Attempts    int              `json:"attempts"`
}

// Notifier delivers a single notification.
type Notifier interface {
	Notify(ctx context.Context, job NotificationJob) error
	Close() error
}

// NotificationQueue buffers notifications for asynchronous delivery.
type NotificationQueue interface {
	Enqueue(ctx context.Context, job NotificationJob) error
	StartWorkers()
	StopWorkers()
}
