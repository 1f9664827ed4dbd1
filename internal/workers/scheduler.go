package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/sherpa-assist/sherpa-backend/internal/database"
	"github.com/sherpa-assist/sherpa-backend/internal/queue"
	"go.uber.org/zap"
)

// jobExpiry is how long a scheduled reconcile job stays valid before the
// DLQ garbage collector may drop it
const jobExpiry = 24 * time.Hour

// Scheduler turns the relational reconciliation backlog into queue jobs.
// It runs on a cron cadence; each pass enqueues one job per profile that
// has unindexed items.
type Scheduler struct {
	repo     database.FocusRepositoryInterface
	jobQueue queue.JobQueue
	logger   *zap.Logger
}

// NewScheduler creates a reconcile scheduler
func NewScheduler(repo database.FocusRepositoryInterface, jobQueue queue.JobQueue, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		repo:     repo,
		jobQueue: jobQueue,
		logger:   logger,
	}
}

// ScheduleReconcileJobs enqueues a reconcile job for every profile with a
// backlog. A profile failing to enqueue does not stop the others; the next
// pass will pick it up again because the backlog query is the source of
// truth, not the queue.
func (s *Scheduler) ScheduleReconcileJobs(ctx context.Context) error {
	profiles, err := s.repo.ListProfilesWithUnindexed(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reconciliation backlog: %w", err)
	}

	scheduled := 0
	for _, profileID := range profiles {
		job := queue.NewReconcileJob(profileID)
		notAfter := time.Now().Add(jobExpiry)
		job.NotAfter = &notAfter

		if err := s.jobQueue.Enqueue(ctx, job); err != nil {
			s.logger.Warn("reconcile_job_enqueue_failed",
				zap.String("profile_id", profileID.String()),
				zap.Error(err),
			)
			continue
		}
		scheduled++
	}

	s.logger.Info("reconcile_jobs_scheduled",
		zap.Int("backlog_profiles", len(profiles)),
		zap.Int("scheduled_count", scheduled),
	)

	return nil
}
