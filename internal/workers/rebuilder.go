package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/benvon/personalization/internal/database"
	"github.com/benvon/personalization/internal/logger"
	"github.com/benvon/personalization/internal/metrics"
	"github.com/benvon/personalization/internal/models"
	"github.com/benvon/personalization/internal/queue"
	"github.com/benvon/personalization/internal/services/profile"
	"github.com/benvon/personalization/internal/services/segment"
	"github.com/benvon/personalization/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProfileSaver persists a freshly built snapshot
type ProfileSaver interface {
	Save(ctx context.Context, snapshot *models.ProfileSnapshot) error
}

// ProfileRebuilder turns a user's raw activity into a stored, classified profile
type ProfileRebuilder struct {
	activityRepo database.ActivityRepositoryInterface
	store        ProfileSaver
	builder      *profile.Builder
	jobQueue     queue.JobQueue // for delayed retries; may be nil
	logger       *zap.Logger
	now          func() time.Time
}

// NewProfileRebuilder creates a new rebuilder
func NewProfileRebuilder(
	activityRepo database.ActivityRepositoryInterface,
	store ProfileSaver,
	builder *profile.Builder,
	jobQueue queue.JobQueue,
	logger *zap.Logger,
) *ProfileRebuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileRebuilder{
		activityRepo: activityRepo,
		store:        store,
		builder:      builder,
		jobQueue:     jobQueue,
		logger:       logger,
		now:          time.Now,
	}
}

// Rebuild loads all activity for userID, builds and classifies the profile and saves it
func (r *ProfileRebuilder) Rebuild(ctx context.Context, userID string, reason queue.RebuildReason) (*models.ProfileSnapshot, error) {
	ctx, span := telemetry.StartSpan(ctx, "profile.rebuild", attribute.String("reason", string(reason)))
	defer span.End()

	start := r.now()
	snap, err := r.rebuild(ctx, userID)
	outcome := "success"
	if err != nil {
		outcome = "error"
		telemetry.RecordError(span, err)
	}
	metrics.RecordProfileBuild(string(reason), outcome, r.now().Sub(start))
	if err != nil {
		return nil, err
	}

	metrics.RecordSegment(string(snap.Segment))
	r.logger.Info("profile_rebuilt",
		zap.String("user_id", logger.SanitizeUserID(userID)),
		zap.String("segment", string(snap.Segment)),
		zap.String("reason", string(reason)),
		zap.Int("version", snap.Version),
	)
	return snap, nil
}

func (r *ProfileRebuilder) rebuild(ctx context.Context, userID string) (*models.ProfileSnapshot, error) {
	user, err := r.activityRepo.LoadUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	activity, err := r.activityRepo.LoadActivity(ctx, userID, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	p := r.builder.Build(userID, user, activity)
	snap := &models.ProfileSnapshot{Profile: p, Segment: segment.Classify(p)}
	if err := r.store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to save profile: %w", err)
	}
	return snap, nil
}

// ProcessJob handles one queue message and always settles it (ack, nack or re-enqueue)
func (r *ProfileRebuilder) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.Type != queue.JobTypeProfileRebuild {
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	if job.UserID == "" {
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Warn("failed_to_nack_invalid_job", zap.Error(nackErr))
		}
		return fmt.Errorf("job %s has no user id", job.ID)
	}

	if _, err := r.Rebuild(ctx, job.UserID, job.Reason); err != nil {
		return r.handleJobError(ctx, msg, job, err)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

func (r *ProfileRebuilder) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, jobErr error) error {
	if !job.CanRetry() || r.jobQueue == nil {
		r.logger.Error("profile_rebuild_dead_lettered",
			zap.String("job_id", job.ID.String()),
			zap.String("user_id", logger.SanitizeUserID(job.UserID)),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(jobErr),
		)
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
		}
		return fmt.Errorf("profile rebuild failed: %w", jobErr)
	}

	retry := *job
	retry.ScheduleRetry(r.now())
	if err := r.jobQueue.Enqueue(ctx, &retry); err != nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Warn("failed_to_nack_job", zap.Error(nackErr))
		}
		return fmt.Errorf("failed to re-enqueue job after %v: %w", jobErr, err)
	}
	if ackErr := msg.Ack(); ackErr != nil {
		r.logger.Warn("failed_to_ack_retried_job", zap.Error(ackErr))
	}

	r.logger.Warn("profile_rebuild_retry_scheduled",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", logger.SanitizeUserID(job.UserID)),
		zap.Int("retry_count", retry.RetryCount),
		zap.Timep("not_before", retry.NotBefore),
		zap.Error(jobErr),
	)
	return fmt.Errorf("profile rebuild failed, retry scheduled: %w", jobErr)
}
