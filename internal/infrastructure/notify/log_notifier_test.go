package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	interfaces "elective-allocation/internal/interfaces/infrastructure"
	"elective-allocation/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifierWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	logger.Init(false)
	logger.SetOutput(&buf)

	section := "A"
	job := interfaces.NotificationJob{
		Kind:        interfaces.NotificationAllocated,
		StudentID:   uuid.New(),
		SubjectID:   uuid.New(),
		SectionName: &section,
		Priority:    2,
	}
	require.NoError(t, LogNotifier{}.Notify(context.Background(), job))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Student notified", entry["msg"])
	assert.Equal(t, job.StudentID.String(), entry["student_id"])
	assert.Equal(t, "A", entry["section"])
	assert.EqualValues(t, 2, entry["priority"])
}
