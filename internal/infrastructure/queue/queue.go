package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	interfaces "elective-allocation/internal/interfaces/infrastructure"
	"elective-allocation/pkg/logger"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxAttempts = 3
	deliveryTimeout    = 30 * time.Second
)

// Queue is an in-process notification queue drained by a pool of workers.
// Failed deliveries are retried up to maxAttempts times.
type Queue struct {
	notifications chan interfaces.NotificationJob
	notifier      interfaces.Notifier

	workers     int
	maxAttempts int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
	mu          sync.RWMutex
}

var _ interfaces.NotificationQueue = (*Queue)(nil)

func NewInMemoryQueue(bufferSize, workers int, notifier interfaces.Notifier) *Queue {
	ctx, cancel := context.WithCancel(context.Background())

	if workers <= 0 {
		workers = 1
	}

	return &Queue{
		notifications: make(chan interfaces.NotificationJob, bufferSize),
		notifier:      notifier,
		workers:       workers,
		maxAttempts:   defaultMaxAttempts,
		ctx:           ctx,
		cancel:        cancel,
	}
}

func (q *Queue) StartWorkers() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}

	logger.Info("Starting %d notification workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.notificationWorker(i)
	}

	q.started = true
}

// StopWorkers cancels the workers and waits for them. Jobs still buffered
// are delivered before the workers exit.
func (q *Queue) StopWorkers() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.started {
		return
	}

	logger.Info("Stopping notification workers...")
	q.cancel()
	q.wg.Wait()
	q.started = false
	logger.Info("Notification workers stopped")
}

// Enqueue never blocks; a full buffer is reported as an error.
func (q *Queue) Enqueue(ctx context.Context, job interfaces.NotificationJob) error {
	select {
	case q.notifications <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("notification queue is full")
	}
}

func (q *Queue) dequeue(ctx context.Context) (*interfaces.NotificationJob, error) {
	select {
	case job := <-q.notifications:
		return &job, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *Queue) notificationWorker(workerID int) {
	defer q.wg.Done()

	logger.Debug("Notification worker %d started", workerID)

	for {
		select {
		case <-q.ctx.Done():
			q.drain(workerID)
			logger.Debug("Notification worker %d stopped", workerID)
			return
		default:
			ctx, cancel := context.WithTimeout(q.ctx, 5*time.Second)
			job, err := q.dequeue(ctx)
			cancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
					continue
				}
				logger.Error("Notification worker %d error: %v", workerID, err)
				continue
			}

			q.deliver(workerID, job)
		}
	}
}

func (q *Queue) drain(workerID int) {
	for {
		select {
		case job := <-q.notifications:
			q.deliver(workerID, &job)
		default:
			return
		}
	}
}

func (q *Queue) deliver(workerID int, job *interfaces.NotificationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	log := logger.WithFields(logrus.Fields{
		"worker":     workerID,
		"kind":       job.Kind,
		"student_id": job.StudentID,
		"subject_id": job.SubjectID,
	})

	for {
		job.Attempts++
		err := q.notifier.Notify(ctx, *job)
		if err == nil {
			log.Debug("Notification delivered")
			return
		}
		if job.Attempts >= q.maxAttempts || ctx.Err() != nil {
			log.WithError(err).Error("Notification dropped after retries")
			return
		}
		log.WithError(err).Warn("Notification failed, retrying")
		time.Sleep(time.Duration(job.Attempts) * 100 * time.Millisecond)
	}
}
