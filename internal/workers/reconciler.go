package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sherpa-assist/sherpa-backend/internal/queue"
	"github.com/sherpa-assist/sherpa-backend/internal/services/ai"
	"go.uber.org/zap"
)

const (
	// lockTTL bounds how long a crashed worker can block a profile
	lockTTL = 5 * time.Minute
	// lockedRetryDelay is how long a job waits when another worker holds
	// the profile lock
	lockedRetryDelay = 30 * time.Second
)

// profileReconciler is the part of the synchronizer the worker needs
type profileReconciler interface {
	Reconcile(ctx context.Context, profileID uuid.UUID) (int, error)
}

// Reconciler consumes reconcile jobs and drives the synchronizer. A Redis
// lock serializes work per profile so two workers never reconcile the same
// profile concurrently; the operation itself is idempotent, the lock only
// avoids duplicate effort.
type Reconciler struct {
	syncer   profileReconciler
	jobQueue queue.JobQueue
	locker   ProfileLocker
	logger   *zap.Logger
	prefetch int
}

// NewReconciler creates a reconcile worker
func NewReconciler(syncer profileReconciler, jobQueue queue.JobQueue, locker ProfileLocker, logger *zap.Logger, prefetch int) *Reconciler {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &Reconciler{
		syncer:   syncer,
		jobQueue: jobQueue,
		locker:   locker,
		logger:   logger,
		prefetch: prefetch,
	}
}

// Run consumes reconcile jobs until the context is cancelled
func (r *Reconciler) Run(ctx context.Context) error {
	messages, errs, err := r.jobQueue.Consume(ctx, r.prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			r.logger.Error("queue_consume_error", zap.Error(err))
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.handle(ctx, msg)
		}
	}
}

// handle processes one job and settles its delivery
func (r *Reconciler) handle(ctx context.Context, msg queue.MessageInterface) {
	job := msg.GetJob()

	if job.Type != queue.JobTypeReconcileProfile {
		r.logger.Warn("unexpected_job_type",
			zap.String("job_id", job.ID.String()),
			zap.String("job_type", string(job.Type)),
		)
		_ = msg.Nack(false)
		return
	}

	locked, err := r.locker.Acquire(ctx, job.ProfileID, lockTTL)
	if err != nil {
		r.logger.Error("reconcile_lock_error",
			zap.String("profile_id", job.ProfileID.String()),
			zap.Error(err),
		)
		_ = msg.Nack(true)
		return
	}
	if !locked {
		// Another worker is on this profile; try again shortly
		r.requeueAfter(ctx, job, lockedRetryDelay)
		_ = msg.Ack()
		return
	}
	defer func() {
		if err := r.locker.Release(ctx, job.ProfileID); err != nil {
			r.logger.Warn("reconcile_unlock_error",
				zap.String("profile_id", job.ProfileID.String()),
				zap.Error(err),
			)
		}
	}()

	count, err := r.syncer.Reconcile(ctx, job.ProfileID)
	if err != nil {
		r.retryOrBury(ctx, msg, job, err)
		return
	}

	r.logger.Info("reconcile_job_complete",
		zap.String("job_id", job.ID.String()),
		zap.String("profile_id", job.ProfileID.String()),
		zap.Int("indexed_count", count),
	)
	_ = msg.Ack()
}

// retryOrBury re-enqueues a failed job with a backoff delay, or dead-letters
// it once its retries are exhausted. Rate-limit and quota failures get the
// longer delays the provider error taxonomy prescribes.
func (r *Reconciler) retryOrBury(ctx context.Context, msg queue.MessageInterface, job *queue.Job, cause error) {
	if !job.CanRetry() {
		r.logger.Error("reconcile_job_exhausted",
			zap.String("job_id", job.ID.String()),
			zap.String("profile_id", job.ProfileID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(cause),
		)
		_ = msg.Nack(false)
		return
	}

	job.IncrementRetry()
	delay := ai.GetRetryDelay(cause, job.RetryCount)

	r.logger.Warn("reconcile_job_retry",
		zap.String("job_id", job.ID.String()),
		zap.String("profile_id", job.ProfileID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Duration("delay", delay),
		zap.Error(cause),
	)

	r.requeueAfter(ctx, job, delay)
	_ = msg.Ack()
}

// requeueAfter publishes the job back with a NotBefore in the future. If the
// publish fails the original delivery should be nacked instead, but by this
// point the job is either retried or lost; losing a reconcile job is safe
// because the scheduler re-creates jobs from the in_index backlog.
func (r *Reconciler) requeueAfter(ctx context.Context, job *queue.Job, delay time.Duration) {
	notBefore := time.Now().Add(delay)
	job.NotBefore = &notBefore

	if err := r.jobQueue.Enqueue(ctx, job); err != nil {
		r.logger.Error("reconcile_job_requeue_failed",
			zap.String("job_id", job.ID.String()),
			zap.String("profile_id", job.ProfileID.String()),
			zap.Error(err),
		)
	}
}
