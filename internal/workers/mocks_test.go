package workers

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/personalization/internal/database"
	"github.com/benvon/personalization/internal/models"
	"github.com/benvon/personalization/internal/queue"
)

type mockJobQueue struct {
	mu          sync.Mutex
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	jobs        []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

var _ queue.JobQueue = (*mockJobQueue)(nil)

type mockActivityRepo struct {
	loadUserFunc     func(ctx context.Context, userID string) (*models.UserRecord, error)
	loadActivityFunc func(ctx context.Context, userID string, since time.Time) (*models.Activity, error)
	listFunc         func(ctx context.Context, since time.Time) ([]string, error)
}

func (m *mockActivityRepo) LoadUser(ctx context.Context, userID string) (*models.UserRecord, error) {
	if m.loadUserFunc != nil {
		return m.loadUserFunc(ctx, userID)
	}
	return &models.UserRecord{ID: userID}, nil
}

func (m *mockActivityRepo) LoadActivity(ctx context.Context, userID string, since time.Time) (*models.Activity, error) {
	if m.loadActivityFunc != nil {
		return m.loadActivityFunc(ctx, userID, since)
	}
	return &models.Activity{}, nil
}

func (m *mockActivityRepo) ListActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, since)
	}
	return nil, nil
}

var _ database.ActivityRepositoryInterface = (*mockActivityRepo)(nil)

type mockSaver struct {
	saveFunc func(ctx context.Context, snap *models.ProfileSnapshot) error
	saved    []*models.ProfileSnapshot
}

func (m *mockSaver) Save(ctx context.Context, snap *models.ProfileSnapshot) error {
	if m.saveFunc != nil {
		if err := m.saveFunc(ctx, snap); err != nil {
			return err
		}
	}
	snap.Version++
	m.saved = append(m.saved, snap)
	return nil
}

var _ ProfileSaver = (*mockSaver)(nil)

type mockMessage struct {
	job     *queue.Job
	acked   bool
	nacked  bool
	requeue bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeue = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job { return m.job }

var _ queue.MessageInterface = (*mockMessage)(nil)
