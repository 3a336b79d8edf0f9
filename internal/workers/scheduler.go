package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/personalization/internal/database"
	"github.com/benvon/personalization/internal/logger"
	"github.com/benvon/personalization/internal/metrics"
	"github.com/benvon/personalization/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RebuildScheduler periodically enqueues rebuild jobs for recently active users
type RebuildScheduler struct {
	jobQueue     queue.JobQueue
	activityRepo database.ActivityRepositoryInterface
	limiter      *rate.Limiter
	interval     time.Duration
	activeWindow time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewRebuildScheduler creates a scheduler publishing at most perSecond jobs per second
func NewRebuildScheduler(
	jobQueue queue.JobQueue,
	activityRepo database.ActivityRepositoryInterface,
	interval, activeWindow time.Duration,
	perSecond float64,
	logger *zap.Logger,
) *RebuildScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RebuildScheduler{
		jobQueue:     jobQueue,
		activityRepo: activityRepo,
		limiter:      rate.NewLimiter(rate.Limit(perSecond), 1),
		interval:     interval,
		activeWindow: activeWindow,
		logger:       logger,
		now:          time.Now,
	}
}

// Start runs one pass immediately and then every interval until ctx is cancelled
func (s *RebuildScheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("rebuild_schedule_failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce enqueues one job per active user and returns how many were published.
// Jobs expire after one interval so a backlog never outlives the next pass.
func (s *RebuildScheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	users, err := s.activityRepo.ListActiveUsers(ctx, now.Add(-s.activeWindow))
	if err != nil {
		return 0, fmt.Errorf("failed to list active users: %w", err)
	}

	notAfter := now.Add(s.interval)
	enqueued := 0
	for _, userID := range users {
		if err := s.limiter.Wait(ctx); err != nil {
			return enqueued, fmt.Errorf("scheduling interrupted: %w", err)
		}
		job := queue.NewProfileRebuildJob(userID, queue.ReasonScheduled)
		job.NotAfter = &notAfter
		if err := s.jobQueue.Enqueue(ctx, job); err != nil {
			s.logger.Warn("failed_to_schedule_profile_rebuild",
				zap.String("user_id", logger.SanitizeUserID(userID)),
				zap.Error(err),
			)
			continue
		}
		metrics.RebuildJobsEnqueuedTotal.WithLabelValues(string(queue.ReasonScheduled)).Inc()
		enqueued++
	}

	s.logger.Info("scheduled_profile_rebuilds",
		zap.Int("active_users", len(users)),
		zap.Int("enqueued", enqueued),
		zap.Time("expires_at", notAfter),
	)
	return enqueued, nil
}
