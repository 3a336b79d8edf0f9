package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/personalization/internal/config"
	"github.com/benvon/personalization/internal/models"
	"github.com/benvon/personalization/internal/queue"
	"github.com/benvon/personalization/internal/services/profile"
	"github.com/gorilla/mux"
)

func newTestBuilder() *profile.Builder {
	fixed := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	return profile.NewBuilder(config.DefaultTuning().Profile).WithClock(func() time.Time { return fixed })
}

func withUserID(r *http.Request, userID string) *http.Request {
	return mux.SetURLVars(r, map[string]string{"userId": userID})
}

func TestProfileHandler_RebuildProfile(t *testing.T) {
	t.Parallel()

	body := map[string]any{
		"location":  "Lisbon",
		"interests": []string{"cycling"},
		"posts": []map[string]any{
			{"id": "p1", "authorId": "someone", "type": "post", "lifeDimension": "wellness", "textLength": 120, "createdAt": "2025-03-09T08:00:00Z"},
			{"id": "p2", "authorId": "u1", "type": "post", "lifeDimension": "professional", "textLength": 300, "createdAt": "2025-03-09T09:00:00Z"},
		},
		"votes": []map[string]any{
			{"id": "v1", "postId": "p1", "targetAuthorId": "someone", "value": 1, "createdAt": "2025-03-09T08:05:00Z"},
		},
	}

	store := &mockProfileStore{}
	h := NewProfileHandler(store, newTestBuilder(), nil, nil)

	w := httptest.NewRecorder()
	h.RebuildProfile(w, withUserID(newTestRequest(http.MethodPost, "/profile/u1/rebuild", body), "u1"))

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	env := decodeEnvelope(t, resp)
	var p models.UserProfile
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("Failed to decode profile: %v", err)
	}
	if p.UserID != "u1" {
		t.Errorf("Expected userId u1, got %q", p.UserID)
	}
	if p.Demographics.Location != "Lisbon" {
		t.Errorf("Expected location Lisbon, got %q", p.Demographics.Location)
	}
	if p.ContentCreation.PostsCreated != 1 {
		t.Errorf("Expected 1 created post, got %d", p.ContentCreation.PostsCreated)
	}

	if len(store.saved) != 1 {
		t.Fatalf("Expected 1 saved snapshot, got %d", len(store.saved))
	}
	if store.saved[0].Segment != models.SegmentNewUser {
		t.Errorf("Expected segment new_user, got %s", store.saved[0].Segment)
	}
}

func TestProfileHandler_RebuildProfile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		userID     string
		body       string
		saveErr    error
		wantStatus int
	}{
		{
			name:       "invalid user id",
			userID:     "bad id",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed body",
			userID:     "u1",
			body:       `{"posts":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "empty body",
			userID:     "u1",
			body:       ``,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "post without id",
			userID:     "u1",
			body:       `{"posts":[{"authorId":"x","createdAt":"2025-03-09T08:00:00Z"}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown life dimension",
			userID:     "u1",
			body:       `{"posts":[{"id":"p1","lifeDimension":"astrology","createdAt":"2025-03-09T08:00:00Z"}]}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store failure",
			userID:     "u1",
			body:       `{}`,
			saveErr:    errors.New("connection refused"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &mockProfileStore{}
			if tt.saveErr != nil {
				store.saveFunc = func(ctx context.Context, snap *models.ProfileSnapshot) error { return tt.saveErr }
			}
			h := NewProfileHandler(store, newTestBuilder(), nil, nil)

			r := httptest.NewRequest(http.MethodPost, "/profile/x/rebuild", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.RebuildProfile(w, withUserID(r, tt.userID))

			resp := w.Result()
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			env := decodeEnvelope(t, resp)
			if env.Success {
				t.Error("Expected success to be false")
			}
			if tt.saveErr != nil && strings.Contains(env.Message, "connection refused") {
				t.Error("Internal error details leaked to client")
			}
		})
	}
}

func TestProfileHandler_RebuildProfile_Async(t *testing.T) {
	t.Parallel()

	t.Run("queued", func(t *testing.T) {
		t.Parallel()

		q := &mockJobQueue{}
		store := &mockProfileStore{}
		h := NewProfileHandler(store, newTestBuilder(), q, nil)

		r := httptest.NewRequest(http.MethodPost, "/profile/u1/rebuild?async=true", nil)
		w := httptest.NewRecorder()
		h.RebuildProfile(w, withUserID(r, "u1"))

		resp := w.Result()
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("Expected status 202, got %d", resp.StatusCode)
		}
		if len(q.jobs) != 1 {
			t.Fatalf("Expected 1 job, got %d", len(q.jobs))
		}
		job := q.jobs[0]
		if job.UserID != "u1" || job.Reason != queue.ReasonAPI || job.Type != queue.JobTypeProfileRebuild {
			t.Errorf("Unexpected job: %+v", job)
		}
		if len(store.saved) != 0 {
			t.Error("Async rebuild must not build inline")
		}

		var data RebuildJobResponse
		if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &data); err != nil {
			t.Fatalf("Failed to decode data: %v", err)
		}
		if data.JobID != job.ID.String() {
			t.Errorf("Expected job id %s, got %s", job.ID, data.JobID)
		}
	})

	t.Run("no queue configured", func(t *testing.T) {
		t.Parallel()

		h := NewProfileHandler(&mockProfileStore{}, newTestBuilder(), nil, nil)
		r := httptest.NewRequest(http.MethodPost, "/profile/u1/rebuild?async=true", nil)
		w := httptest.NewRecorder()
		h.RebuildProfile(w, withUserID(r, "u1"))

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})

	t.Run("enqueue failure", func(t *testing.T) {
		t.Parallel()

		q := &mockJobQueue{enqueueFunc: func(ctx context.Context, job *queue.Job) error {
			return errors.New("channel closed")
		}}
		h := NewProfileHandler(&mockProfileStore{}, newTestBuilder(), q, nil)
		r := httptest.NewRequest(http.MethodPost, "/profile/u1/rebuild?async=true", nil)
		w := httptest.NewRecorder()
		h.RebuildProfile(w, withUserID(r, "u1"))

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})
}

func TestProfileHandler_GetProfile(t *testing.T) {
	t.Parallel()

	stored := models.NewDefaultProfile("u1")
	stored.ContentConsumption.TotalViews = 40

	tests := []struct {
		name        string
		userID      string
		latest      func(ctx context.Context, userID string) (*models.ProfileSnapshot, error)
		wantStatus  int
		wantSegment models.UserSegment
	}{
		{
			name:   "stored snapshot",
			userID: "u1",
			latest: func(ctx context.Context, userID string) (*models.ProfileSnapshot, error) {
				return &models.ProfileSnapshot{Profile: stored, Segment: models.SegmentCasualConsumer, Version: 3}, nil
			},
			wantStatus:  http.StatusOK,
			wantSegment: models.SegmentCasualConsumer,
		},
		{
			name:        "default snapshot",
			userID:      "u2",
			wantStatus:  http.StatusOK,
			wantSegment: models.SegmentNewUser,
		},
		{
			name:   "store failure",
			userID: "u1",
			latest: func(ctx context.Context, userID string) (*models.ProfileSnapshot, error) {
				return nil, errors.New("boom")
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "invalid user id",
			userID:     "",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewProfileHandler(&mockProfileStore{latestFunc: tt.latest}, newTestBuilder(), nil, nil)
			r := httptest.NewRequest(http.MethodGet, "/profile/x", nil)
			w := httptest.NewRecorder()
			h.GetProfile(w, withUserID(r, tt.userID))

			resp := w.Result()
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var data ProfileResponse
			if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &data); err != nil {
				t.Fatalf("Failed to decode data: %v", err)
			}
			if data.Segment != tt.wantSegment {
				t.Errorf("Expected segment %s, got %s", tt.wantSegment, data.Segment)
			}
			if data.Profile == nil || data.Profile.UserID != tt.userID {
				t.Errorf("Expected profile for %s, got %+v", tt.userID, data.Profile)
			}
		})
	}
}
