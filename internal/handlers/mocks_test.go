package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/benvon/personalization/internal/models"
	"github.com/benvon/personalization/internal/queue"
	"github.com/benvon/personalization/internal/services/segment"
)

type mockProfileStore struct {
	mu         sync.Mutex
	latestFunc func(ctx context.Context, userID string) (*models.ProfileSnapshot, error)
	saveFunc   func(ctx context.Context, snap *models.ProfileSnapshot) error
	saved      []*models.ProfileSnapshot
}

func (m *mockProfileStore) Latest(ctx context.Context, userID string) (*models.ProfileSnapshot, error) {
	if m.latestFunc != nil {
		return m.latestFunc(ctx, userID)
	}
	p := models.NewDefaultProfile(userID)
	return &models.ProfileSnapshot{Profile: p, Segment: segment.Classify(p)}, nil
}

func (m *mockProfileStore) Save(ctx context.Context, snap *models.ProfileSnapshot) error {
	if m.saveFunc != nil {
		if err := m.saveFunc(ctx, snap); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.Version = len(m.saved) + 1
	m.saved = append(m.saved, snap)
	return nil
}

var _ ProfileStore = (*mockProfileStore)(nil)

type mockJobQueue struct {
	mu          sync.Mutex
	enqueueFunc func(ctx context.Context, job *queue.Job) error
	jobs        []*queue.Job
}

func (m *mockJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if m.enqueueFunc != nil {
		if err := m.enqueueFunc(ctx, job); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *mockJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}

func (m *mockJobQueue) Close() error { return nil }

func (m *mockJobQueue) HealthCheck(ctx context.Context) error { return nil }

var _ queue.JobQueue = (*mockJobQueue)(nil)

// envelope mirrors the response wrapper written by respondJSON and respondJSONError
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return env
}
