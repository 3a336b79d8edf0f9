package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/personalization/internal/logger"
	"github.com/benvon/personalization/internal/metrics"
	"github.com/benvon/personalization/internal/models"
	"github.com/benvon/personalization/internal/queue"
	"github.com/benvon/personalization/internal/services/profile"
	"github.com/benvon/personalization/internal/services/segment"
	"github.com/benvon/personalization/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ProfileStore reads and writes the latest profile snapshot per user
type ProfileStore interface {
	Latest(ctx context.Context, userID string) (*models.ProfileSnapshot, error)
	Save(ctx context.Context, snapshot *models.ProfileSnapshot) error
}

// ProfileHandler serves profile build and lookup endpoints
type ProfileHandler struct {
	store    ProfileStore
	builder  *profile.Builder
	jobQueue queue.JobQueue // may be nil
	logger   *zap.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(store ProfileStore, builder *profile.Builder, jobQueue queue.JobQueue, logger *zap.Logger) *ProfileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileHandler{
		store:    store,
		builder:  builder,
		jobQueue: jobQueue,
		logger:   logger,
	}
}

// RebuildProfileRequest carries the raw activity for a synchronous build
type RebuildProfileRequest struct {
	models.UserRecord
	models.Activity
}

// ProfileResponse is a stored profile together with its classification
type ProfileResponse struct {
	Profile   *models.UserProfile `json:"profile"`
	Segment   models.UserSegment  `json:"segment"`
	Version   int                 `json:"version"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// RebuildJobResponse is returned when a rebuild is queued instead of run inline
type RebuildJobResponse struct {
	JobID  string `json:"jobId"`
	UserID string `json:"userId"`
}

// RebuildProfile handles POST /profile/{userId}/rebuild.
// With ?async=true the build is queued for the worker and the body is ignored.
func (h *ProfileHandler) RebuildProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := validation.ValidateUserID(userID); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		h.enqueueRebuild(w, r, userID)
		return
	}

	var req RebuildProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	req.UserRecord.ID = userID

	start := time.Now()
	p := h.builder.Build(userID, &req.UserRecord, &req.Activity)
	snap := &models.ProfileSnapshot{
		Profile: p,
		Segment: segment.Classify(p),
	}

	if err := h.store.Save(r.Context(), snap); err != nil {
		metrics.RecordProfileBuild(string(queue.ReasonAPI), "error", time.Since(start))
		h.logger.Error("profile_save_failed",
			zap.String("user_id", logger.SanitizeUserID(userID)),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to store profile")
		return
	}
	metrics.RecordProfileBuild(string(queue.ReasonAPI), "success", time.Since(start))
	metrics.RecordSegment(string(snap.Segment))

	h.logger.Debug("profile_built",
		zap.String("user_id", logger.SanitizeUserID(userID)),
		zap.String("segment", string(snap.Segment)),
		zap.Int("version", snap.Version),
	)
	respondJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) enqueueRebuild(w http.ResponseWriter, r *http.Request, userID string) {
	if h.jobQueue == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Background rebuilds are not configured")
		return
	}

	job := queue.NewProfileRebuildJob(userID, queue.ReasonAPI)
	if err := h.jobQueue.Enqueue(r.Context(), job); err != nil {
		h.logger.Error("rebuild_enqueue_failed",
			zap.String("user_id", logger.SanitizeUserID(userID)),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusServiceUnavailable, "Service Unavailable", "Failed to queue profile rebuild")
		return
	}
	metrics.RebuildJobsEnqueuedTotal.WithLabelValues(string(queue.ReasonAPI)).Inc()

	respondJSON(w, http.StatusAccepted, RebuildJobResponse{
		JobID:  job.ID.String(),
		UserID: userID,
	})
}

// GetProfile handles GET /profile/{userId}. Users without a stored profile get the default one.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if err := validation.ValidateUserID(userID); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	snap, err := h.store.Latest(r.Context(), userID)
	if err != nil {
		h.logger.Error("profile_lookup_failed",
			zap.String("user_id", logger.SanitizeUserID(userID)),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load profile")
		return
	}

	respondJSON(w, http.StatusOK, ProfileResponse{
		Profile:   snap.Profile,
		Segment:   snap.Segment,
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt,
	})
}

// resolveProfile picks the inline profile when given, otherwise the stored one for userID.
// With neither it falls back to the default profile.
func resolveProfile(ctx context.Context, store ProfileStore, inline *models.UserProfile, userID string) (*models.UserProfile, models.UserSegment, error) {
	if inline != nil {
		return inline, segment.Classify(inline), nil
	}
	if userID == "" || store == nil {
		p := models.NewDefaultProfile("")
		return p, segment.Classify(p), nil
	}
	snap, err := store.Latest(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	return snap.Profile, snap.Segment, nil
}

// RegisterRoutes registers profile routes
func (h *ProfileHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/profile/{userId}/rebuild", h.RebuildProfile).Methods(http.MethodPost)
	r.HandleFunc("/profile/{userId}", h.GetProfile).Methods(http.MethodGet)
}
