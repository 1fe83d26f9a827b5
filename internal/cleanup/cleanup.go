// Package cleanup retries deletions of replaced pictures that failed while
// serving an upload.
package cleanup

import (
	"context"
	"errors"
	"time"

	"studentpics/internal/metrics"
	"studentpics/internal/queue"
	"studentpics/internal/students"
)

// MessageType marks queue messages carrying a blob name to delete.
const MessageType = "blob.delete"

// Scheduler publishes cleanup jobs. It satisfies students.CleanupScheduler.
type Scheduler struct {
	q queue.Queue
}

func NewScheduler(q queue.Queue) *Scheduler {
	return &Scheduler{q: q}
}

func (s *Scheduler) ScheduleCleanup(ctx context.Context, filename string) error {
	return s.q.Publish(ctx, queue.Message{Type: MessageType, Body: []byte(filename), Attempt: 1})
}

// Worker consumes cleanup jobs and deletes the named blobs.
type Worker struct {
	q           queue.Queue
	blobs       students.BlobStore
	maxAttempts int
	logger      students.Logger
	// Pause is slept between jobs.
	Pause time.Duration
	// RetryDelay is the wait before the second attempt. It doubles per
	// attempt up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// NewWorker creates a worker giving up on a blob after maxAttempts tries.
func NewWorker(q queue.Queue, blobs students.BlobStore, maxAttempts int, logger students.Logger) *Worker {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Worker{
		q:             q,
		blobs:         blobs,
		maxAttempts:   maxAttempts,
		logger:        logger,
		Pause:         10 * time.Millisecond,
		RetryDelay:    time.Second,
		MaxRetryDelay: time.Minute,
	}
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if msg.Type != MessageType {
			continue
		}
		w.Handle(ctx, msg)
		time.Sleep(w.Pause)
	}
	return nil
}

// Handle deletes one blob. A failed delete is published again after a
// backoff; the receive loop never waits on that publish.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) string {
	name := string(msg.Body)
	err := w.blobs.Delete(ctx, name)
	outcome := "removed"
	switch {
	case err == nil:
		w.logger.Printf("cleanup: removed %s", name)
	case errors.Is(err, students.ErrBlobNotFound):
		outcome = "absent"
	case msg.Attempt >= w.maxAttempts:
		outcome = "abandoned"
		w.logger.Printf("cleanup: giving up on %s after %d attempts: %v", name, msg.Attempt, err)
	default:
		outcome = "requeued"
		w.logger.Printf("cleanup: attempt %d for %s failed: %v", msg.Attempt, name, err)
		delay := w.backoff(msg.Attempt)
		msg.Attempt++
		time.AfterFunc(delay, func() { w.requeue(ctx, msg) })
	}
	metrics.StaleCleanups.WithLabelValues("worker", outcome).Inc()
	return outcome
}

func (w *Worker) backoff(attempt int) time.Duration {
	d := w.RetryDelay
	for i := 1; i < attempt && d < w.MaxRetryDelay; i++ {
		d *= 2
	}
	if w.MaxRetryDelay > 0 && d > w.MaxRetryDelay {
		d = w.MaxRetryDelay
	}
	return d
}

func (w *Worker) requeue(ctx context.Context, msg queue.Message) {
	if ctx.Err() != nil {
		return
	}
	if err := w.q.Publish(ctx, msg); err != nil {
		w.logger.Printf("cleanup: requeue %s failed: %v", msg.Body, err)
		metrics.StaleCleanups.WithLabelValues("worker", "abandoned").Inc()
	}
}
