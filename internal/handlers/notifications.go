package handlers

import (
	"net/http"

	"github.com/benvon/personalization/internal/logger"
	"github.com/benvon/personalization/internal/metrics"
	"github.com/benvon/personalization/internal/models"
	"github.com/benvon/personalization/internal/services/notification"
	"github.com/benvon/personalization/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NotificationHandler scores candidate notifications and decides which to send
type NotificationHandler struct {
	store  ProfileStore // may be nil
	scorer *notification.Scorer
	logger *zap.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(store ProfileStore, scorer *notification.Scorer, logger *zap.Logger) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		store:  store,
		scorer: scorer,
		logger: logger,
	}
}

// ScoreNotificationsRequest is the body of POST /notifications/score.
// UserName and Stats, when present, fill template placeholders before scoring.
type ScoreNotificationsRequest struct {
	Profile    *models.UserProfile           `json:"profile,omitempty"`
	UserID     string                        `json:"userId,omitempty" validate:"omitempty,max=128"`
	Candidates []models.NotificationTemplate `json:"candidates" validate:"required,max=100,dive"`
	Context    models.NotificationContext    `json:"context"`
	UserName   string                        `json:"userName,omitempty" validate:"max=100"`
	Stats      map[string]string             `json:"stats,omitempty" validate:"max=20"`
}

// ScoreNotifications handles POST /notifications/score
func (h *NotificationHandler) ScoreNotifications(w http.ResponseWriter, r *http.Request) {
	var req ScoreNotificationsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, seg, err := resolveProfile(r.Context(), h.store, req.Profile, req.UserID)
	if err != nil {
		h.logger.Error("notification_profile_lookup_failed",
			zap.String("user_id", logger.SanitizeUserID(req.UserID)),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load profile")
		return
	}

	candidates := req.Candidates
	if req.UserName != "" || len(req.Stats) > 0 {
		userName := validation.SanitizeText(req.UserName)
		stats := make(map[string]string, len(req.Stats))
		for k, v := range req.Stats {
			stats[k] = validation.SanitizeText(v)
		}
		candidates = make([]models.NotificationTemplate, len(req.Candidates))
		for i, tmpl := range req.Candidates {
			candidates[i] = notification.PersonalizeTemplate(tmpl, userName, seg, stats)
		}
	}

	scored := h.scorer.Score(candidates, p, seg, req.Context)
	for _, s := range scored {
		metrics.RecordNotificationDecision(string(s.Type), s.ShouldSend)
	}

	if scored == nil {
		scored = []models.ScoredNotification{}
	}
	respondJSON(w, http.StatusOK, scored)
}

// RegisterRoutes registers notification routes
func (h *NotificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/notifications/score", h.ScoreNotifications).Methods(http.MethodPost)
}
