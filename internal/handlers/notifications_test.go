package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/personalization/internal/config"
	"github.com/benvon/personalization/internal/models"
	"github.com/benvon/personalization/internal/services/notification"
)

func newTestNotificationHandler() *NotificationHandler {
	fixed := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	scorer := notification.NewScorer(config.DefaultTuning().Notification).WithClock(func() time.Time { return fixed })
	return NewNotificationHandler(&mockProfileStore{}, scorer, nil)
}

func TestNotificationHandler_ScoreNotifications(t *testing.T) {
	t.Parallel()

	req := ScoreNotificationsRequest{
		Candidates: []models.NotificationTemplate{
			{ID: "n1", Type: models.NotificationSocial, Title: "{greeting} {userName}", Body: "You have {count} new followers", Priority: models.PriorityMedium},
			{ID: "n2", Type: models.NotificationSafety, Title: "Safety alert", Body: "Road closed", Priority: models.PriorityUrgent},
		},
		Context:  models.NotificationContext{NotificationsSentToday: 1},
		UserName: "Ana",
		Stats:    map[string]string{"count": "3"},
	}

	h := newTestNotificationHandler()
	w := httptest.NewRecorder()
	h.ScoreNotifications(w, newTestRequest(http.MethodPost, "/notifications/score", req))

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var scored []models.ScoredNotification
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &scored); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(scored))
	}

	byID := make(map[string]models.ScoredNotification)
	for i, s := range scored {
		byID[s.ID] = s
		if s.TotalScore < 0 || s.TotalScore > 1 {
			t.Errorf("Total score %f out of range for %s", s.TotalScore, s.ID)
		}
		if s.OptimalSendTime == nil {
			t.Errorf("Expected optimal send time for %s", s.ID)
		}
		if i > 0 && scored[i-1].TotalScore < s.TotalScore {
			t.Errorf("Notifications not in descending order at %d", i)
		}
	}

	social := byID["n1"]
	if !strings.Contains(social.Title, "Ana") || strings.Contains(social.Title, "{") {
		t.Errorf("Expected personalized title, got %q", social.Title)
	}
	if social.Body != "You have 3 new followers" {
		t.Errorf("Expected stats substitution, got %q", social.Body)
	}
}

func TestNotificationHandler_ScoreNotifications_LeavesTemplatesWithoutPersonalization(t *testing.T) {
	t.Parallel()

	req := ScoreNotificationsRequest{
		Profile: models.NewDefaultProfile("u1"),
		Candidates: []models.NotificationTemplate{
			{ID: "n1", Type: models.NotificationContent, Title: "Hi {userName}", Priority: models.PriorityLow},
		},
	}

	h := newTestNotificationHandler()
	w := httptest.NewRecorder()
	h.ScoreNotifications(w, newTestRequest(http.MethodPost, "/notifications/score", req))

	resp := w.Result()
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var scored []models.ScoredNotification
	if err := json.Unmarshal(decodeEnvelope(t, resp).Data, &scored); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if len(scored) != 1 || scored[0].Title != "Hi {userName}" {
		t.Errorf("Expected untouched template, got %+v", scored)
	}
}

func TestNotificationHandler_ScoreNotifications_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "missing candidates", body: `{"context":{}}`},
		{name: "unknown type", body: `{"candidates":[{"id":"n1","type":"spam","title":"x","priority":"low"}]}`},
		{name: "unknown priority", body: `{"candidates":[{"id":"n1","type":"social","title":"x","priority":"critical"}]}`},
		{name: "missing title", body: `{"candidates":[{"id":"n1","type":"social","priority":"low"}]}`},
		{name: "negative sent count", body: `{"candidates":[],"context":{"notificationsSentToday":-1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestNotificationHandler()
			w := httptest.NewRecorder()
			h.ScoreNotifications(w, httptest.NewRequest(http.MethodPost, "/notifications/score", strings.NewReader(tt.body)))

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
		})
	}
}
