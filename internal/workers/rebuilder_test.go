package workers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/benvon/personalization/internal/config"
	"github.com/benvon/personalization/internal/models"
	"github.com/benvon/personalization/internal/queue"
	"github.com/benvon/personalization/internal/services/profile"
	"go.uber.org/zap/zaptest"
)

func creatorActivity(userID string) *models.Activity {
	base := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	activity := &models.Activity{}
	for i := 0; i < 12; i++ {
		activity.Posts = append(activity.Posts, models.PostRecord{
			ID:            fmt.Sprintf("p%d", i),
			AuthorID:      userID,
			Type:          models.ContentTypePost,
			LifeDimension: models.DimensionProfessional,
			Upvotes:       3,
			CreatedAt:     base.Add(time.Duration(i) * time.Hour),
		})
	}
	return activity
}

func newTestRebuilder(t *testing.T, repo *mockActivityRepo, saver *mockSaver, q queue.JobQueue) *ProfileRebuilder {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	builder := profile.NewBuilder(config.DefaultTuning().Profile).WithClock(func() time.Time { return now })
	r := NewProfileRebuilder(repo, saver, builder, q, zaptest.NewLogger(t))
	r.now = func() time.Time { return now }
	return r
}

func TestProfileRebuilder_Rebuild(t *testing.T) {
	t.Parallel()

	var gotSince time.Time
	repo := &mockActivityRepo{
		loadActivityFunc: func(ctx context.Context, userID string, since time.Time) (*models.Activity, error) {
			gotSince = since
			return creatorActivity(userID), nil
		},
	}
	saver := &mockSaver{}
	r := newTestRebuilder(t, repo, saver, nil)

	snap, err := r.Rebuild(context.Background(), "creator-1", queue.ReasonManual)
	if err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if !gotSince.IsZero() {
		t.Errorf("expected full history load, got since=%v", gotSince)
	}
	if len(saver.saved) != 1 {
		t.Fatalf("saved %d snapshots, want 1", len(saver.saved))
	}
	if snap.Profile.UserID != "creator-1" {
		t.Errorf("UserID = %q", snap.Profile.UserID)
	}
	if snap.Profile.ContentCreation.PostsCreated != 12 {
		t.Errorf("PostsCreated = %d, want 12", snap.Profile.ContentCreation.PostsCreated)
	}
	if !snap.Segment.Valid() {
		t.Errorf("segment %q is not valid", snap.Segment)
	}
	if snap.Version != 1 {
		t.Errorf("Version = %d, want 1", snap.Version)
	}
}

func TestProfileRebuilder_RebuildErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		repo  *mockActivityRepo
		saver *mockSaver
	}{
		{
			name: "user load fails",
			repo: &mockActivityRepo{loadUserFunc: func(ctx context.Context, userID string) (*models.UserRecord, error) {
				return nil, errors.New("db down")
			}},
			saver: &mockSaver{},
		},
		{
			name: "activity load fails",
			repo: &mockActivityRepo{loadActivityFunc: func(ctx context.Context, userID string, since time.Time) (*models.Activity, error) {
				return nil, errors.New("db down")
			}},
			saver: &mockSaver{},
		},
		{
			name: "save fails",
			repo: &mockActivityRepo{},
			saver: &mockSaver{saveFunc: func(ctx context.Context, snap *models.ProfileSnapshot) error {
				return errors.New("write failed")
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newTestRebuilder(t, tt.repo, tt.saver, nil)
			if _, err := r.Rebuild(context.Background(), "u", queue.ReasonAPI); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestProfileRebuilder_ProcessJob(t *testing.T) {
	t.Parallel()

	failingRepo := func() *mockActivityRepo {
		return &mockActivityRepo{loadUserFunc: func(ctx context.Context, userID string) (*models.UserRecord, error) {
			return nil, errors.New("db down")
		}}
	}

	tests := []struct {
		name        string
		job         *queue.Job
		repo        *mockActivityRepo
		queue       *mockJobQueue
		wantErr     bool
		wantAck     bool
		wantNack    bool
		wantRetries int
	}{
		{
			name:    "successful rebuild is acked",
			job:     queue.NewProfileRebuildJob("u1", queue.ReasonScheduled),
			repo:    &mockActivityRepo{},
			queue:   &mockJobQueue{},
			wantAck: true,
		},
		{
			name:     "unknown job type is dead lettered",
			job:      &queue.Job{Type: "task_analysis", UserID: "u1"},
			repo:     &mockActivityRepo{},
			queue:    &mockJobQueue{},
			wantErr:  true,
			wantNack: true,
		},
		{
			name:     "missing user id is dead lettered",
			job:      &queue.Job{Type: queue.JobTypeProfileRebuild},
			repo:     &mockActivityRepo{},
			queue:    &mockJobQueue{},
			wantErr:  true,
			wantNack: true,
		},
		{
			name:        "failure with retries left is re-enqueued",
			job:         queue.NewProfileRebuildJob("u1", queue.ReasonScheduled),
			repo:        failingRepo(),
			queue:       &mockJobQueue{},
			wantErr:     true,
			wantAck:     true,
			wantRetries: 1,
		},
		{
			name:     "failure without retries left is dead lettered",
			job:      &queue.Job{Type: queue.JobTypeProfileRebuild, UserID: "u1", RetryCount: 3, MaxRetries: 3},
			repo:     failingRepo(),
			queue:    &mockJobQueue{},
			wantErr:  true,
			wantNack: true,
		},
		{
			name: "failed re-enqueue is dead lettered",
			job:  queue.NewProfileRebuildJob("u1", queue.ReasonScheduled),
			repo: failingRepo(),
			queue: &mockJobQueue{enqueueFunc: func(ctx context.Context, job *queue.Job) error {
				return errors.New("broker down")
			}},
			wantErr:  true,
			wantNack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newTestRebuilder(t, tt.repo, &mockSaver{}, tt.queue)
			msg := &mockMessage{job: tt.job}

			err := r.ProcessJob(context.Background(), msg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessJob() error = %v, wantErr %v", err, tt.wantErr)
			}
			if msg.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", msg.acked, tt.wantAck)
			}
			if msg.nacked != tt.wantNack {
				t.Errorf("nacked = %v, want %v", msg.nacked, tt.wantNack)
			}
			if msg.nacked && msg.requeue {
				t.Error("failed jobs must not be requeued in place")
			}
			if len(tt.queue.jobs) != tt.wantRetries {
				t.Fatalf("re-enqueued %d jobs, want %d", len(tt.queue.jobs), tt.wantRetries)
			}
			if tt.wantRetries > 0 {
				retry := tt.queue.jobs[0]
				if retry.ID != tt.job.ID || retry.RetryCount != 1 || retry.NotBefore == nil {
					t.Errorf("unexpected retry job %+v", retry)
				}
				if tt.job.RetryCount != 0 {
					t.Error("original job must not be mutated")
				}
			}
		})
	}
}
