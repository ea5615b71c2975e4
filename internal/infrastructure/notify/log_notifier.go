// Package notify holds the transports that tell students where they were
// placed.
package notify

import (
	"context"

	interfaces "elective-allocation/internal/interfaces/infrastructure"
	"elective-allocation/pkg/logger"

	"github.com/sirupsen/logrus"
)

// LogNotifier writes notifications to the application log.
type LogNotifier struct{}

var _ interfaces.Notifier = LogNotifier{}

func (LogNotifier) Notify(_ context.Context, job interfaces.NotificationJob) error {
	fields := logrus.Fields{
		"kind":       job.Kind,
		"run_id":     job.RunID,
		"student_id": job.StudentID,
		"subject_id": job.SubjectID,
		"priority":   job.Priority,
	}
	if job.SectionName != nil {
		fields["section"] = *job.SectionName
	}
	logger.WithFields(fields).Info("Student notified")
	return nil
}

func (LogNotifier) Close() error { return nil }

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, interfaces.NotificationJob) error { return nil }

func (NopNotifier) Close() error { return nil }
