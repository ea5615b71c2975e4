package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	interfaces "elective-allocation/internal/interfaces/infrastructure"
	"elective-allocation/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	NotificationQueueKey  = "queue:notifications"
	DefaultDequeueTimeout = 2 * time.Second
	WorkerSleepDuration   = 50 * time.Millisecond
)

// RedisQueue keeps pending notifications in a Redis list so they survive a
// restart and can be drained by any instance.
type RedisQueue struct {
	client   redis.UniversalClient
	key      string
	notifier interfaces.Notifier

	workers     int
	maxAttempts int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
	mu          sync.RWMutex
}

var _ interfaces.NotificationQueue = (*RedisQueue)(nil)

func NewRedisQueue(client redis.UniversalClient, workers int, notifier interfaces.Notifier) *RedisQueue {
	ctx, cancel := context.WithCancel(context.Background())

	if workers <= 0 {
		workers = 1
	}

	return &RedisQueue{
		client:      client,
		key:         NotificationQueueKey,
		notifier:    notifier,
		workers:     workers,
		maxAttempts: defaultMaxAttempts,
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (rq *RedisQueue) StartWorkers() {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if rq.started {
		return
	}

	logger.Info("Starting %d Redis notification workers", rq.workers)

	for i := 0; i < rq.workers; i++ {
		rq.wg.Add(1)
		go rq.notificationWorker(i)
	}

	rq.started = true
}

// StopWorkers stops polling. Jobs still in the list stay there for the
// next start.
func (rq *RedisQueue) StopWorkers() {
	rq.mu.Lock()
	defer rq.mu.Unlock()

	if !rq.started {
		return
	}

	logger.Info("Stopping Redis notification workers...")
	rq.cancel()
	rq.wg.Wait()
	rq.started = false
	logger.Info("Redis notification workers stopped")
}

func (rq *RedisQueue) Enqueue(ctx context.Context, job interfaces.NotificationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal notification job: %w", err)
	}

	if err := rq.client.LPush(ctx, rq.key, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	logger.Debug("Enqueued %s notification for student %s", job.Kind, job.StudentID)
	return nil
}

// dequeue returns nil, nil when nothing arrived before the timeout.
func (rq *RedisQueue) dequeue(ctx context.Context) (*interfaces.NotificationJob, error) {
	result, err := rq.client.BRPop(ctx, DefaultDequeueTimeout, rq.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue notification: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected Redis BRPOP result format")
	}

	var job interfaces.NotificationJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification job: %w", err)
	}
	return &job, nil
}

func (rq *RedisQueue) notificationWorker(workerID int) {
	defer rq.wg.Done()

	logger.Debug("Redis notification worker %d started", workerID)

	for {
		select {
		case <-rq.ctx.Done():
			logger.Debug("Redis notification worker %d stopped", workerID)
			return
		default:
			ctx, cancel := context.WithTimeout(rq.ctx, DefaultDequeueTimeout+time.Second)
			job, err := rq.dequeue(ctx)
			cancel()

			if err != nil {
				logger.Error("Redis notification worker %d error: %v", workerID, err)
				time.Sleep(WorkerSleepDuration)
				continue
			}
			if job == nil {
				continue
			}

			rq.deliver(workerID, job)
		}
	}
}

// deliver retries in place and pushes the job back once attempts remain
// but the notifier keeps failing.
func (rq *RedisQueue) deliver(workerID int, job *interfaces.NotificationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	log := logger.WithFields(logrus.Fields{
		"worker":     workerID,
		"kind":       job.Kind,
		"student_id": job.StudentID,
		"attempts":   job.Attempts,
	})

	job.Attempts++
	err := rq.notifier.Notify(ctx, *job)
	if err == nil {
		log.Debug("Notification delivered")
		return
	}
	if job.Attempts >= rq.maxAttempts {
		log.WithError(err).Error("Notification dropped after retries")
		return
	}

	log.WithError(err).Warn("Notification failed, requeueing")
	if err := rq.Enqueue(ctx, *job); err != nil {
		log.WithError(err).Error("Failed to requeue notification")
	}
}
