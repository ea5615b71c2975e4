package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	interfaces "elective-allocation/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu       sync.Mutex
	failures int
	got      []interfaces.NotificationJob
}

func (n *recordingNotifier) Notify(_ context.Context, job interfaces.NotificationJob) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.failures > 0 {
		n.failures--
		return errors.New("broker unavailable")
	}
	n.got = append(n.got, job)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

func (n *recordingNotifier) delivered() []interfaces.NotificationJob {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]interfaces.NotificationJob(nil), n.got...)
}

func TestQueueDeliversBufferedJobsOnStop(t *testing.T) {
	n := &recordingNotifier{}
	q := NewInMemoryQueue(10, 2, n)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), interfaces.NotificationJob{
			Kind:      interfaces.NotificationAllocated,
			StudentID: uuid.New(),
		}))
	}

	q.StartWorkers()
	q.StopWorkers()

	assert.Len(t, n.delivered(), 5)
}

func TestQueueRetriesFailedDelivery(t *testing.T) {
	n := &recordingNotifier{failures: 2}
	q := NewInMemoryQueue(1, 1, n)

	require.NoError(t, q.Enqueue(context.Background(), interfaces.NotificationJob{StudentID: uuid.New()}))
	q.StartWorkers()
	q.StopWorkers()

	got := n.delivered()
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Attempts)
}

func TestQueueEnqueueFailsWhenFull(t *testing.T) {
	q := NewInMemoryQueue(1, 1, &recordingNotifier{})

	require.NoError(t, q.Enqueue(context.Background(), interfaces.NotificationJob{}))
	err := q.Enqueue(context.Background(), interfaces.NotificationJob{})
	assert.EqualError(t, err, "notification queue is full")
}
