package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/personalization/internal/logger"
	"github.com/benvon/personalization/internal/metrics"
	"github.com/benvon/personalization/internal/models"
	"github.com/benvon/personalization/internal/services/ranking"
	"github.com/benvon/personalization/internal/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// FeedHandler ranks feed candidates for a user
type FeedHandler struct {
	store    ProfileStore // may be nil
	ranker   *ranking.Ranker
	reranker *ranking.DiversityReranker
	logger   *zap.Logger
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(store ProfileStore, ranker *ranking.Ranker, reranker *ranking.DiversityReranker, logger *zap.Logger) *FeedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedHandler{
		store:    store,
		ranker:   ranker,
		reranker: reranker,
		logger:   logger,
	}
}

// RankFeedRequest is the body of POST /feed/rank.
// Profile takes precedence over UserID; with neither the default profile is used.
// A zero Limit returns every candidate that was not recently viewed.
type RankFeedRequest struct {
	Profile           *models.UserProfile  `json:"profile,omitempty"`
	UserID            string               `json:"userId,omitempty" validate:"omitempty,max=128"`
	Candidates        []models.ContentItem `json:"candidates" validate:"required,max=1000,dive"`
	RecentlyViewedIDs []string             `json:"recentlyViewedIds,omitempty" validate:"max=5000"`
	Limit             int                  `json:"limit,omitempty" validate:"min=0,max=1000"`
}

// RankFeed handles POST /feed/rank and returns the candidates in final order
func (h *FeedHandler) RankFeed(w http.ResponseWriter, r *http.Request) {
	var req RankFeedRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, seg, err := resolveProfile(r.Context(), h.store, req.Profile, req.UserID)
	if err != nil {
		h.logger.Error("feed_profile_lookup_failed",
			zap.String("user_id", logger.SanitizeUserID(req.UserID)),
			zap.String("error", logger.SanitizeError(err)),
		)
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to load profile")
		return
	}

	_, span := telemetry.StartSpan(r.Context(), "feed.rank",
		attribute.String("segment", string(seg)),
		attribute.Int("candidates", len(req.Candidates)),
	)
	start := time.Now()
	ranked := ranking.Feed(h.ranker, h.reranker, req.Candidates, p, seg, req.RecentlyViewedIDs, req.Limit)
	metrics.RecordFeedRank(string(seg), len(req.Candidates), time.Since(start))
	span.End()

	if ranked == nil {
		ranked = []models.ScoredContent{}
	}
	respondJSON(w, http.StatusOK, ranked)
}

// RegisterRoutes registers feed routes
func (h *FeedHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/feed/rank", h.RankFeed).Methods(http.MethodPost)
}
