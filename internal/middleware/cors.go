package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/benvon/personalization/internal/database"
	"github.com/benvon/personalization/internal/models"
	"github.com/benvon/personalization/internal/request"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const defaultCORSMaxAge = 86400

// CORSReloader wraps rs/cors and periodically reloads its settings from the database
type CORSReloader struct {
	hotSwap
	repo     database.SettingsRepositoryInterface
	fallback []string
	log      *zap.Logger
	interval time.Duration
}

// NewCORSReloader creates a CORS middleware. fallbackOrigins apply when no settings are stored
// or repo is nil.
func NewCORSReloader(repo database.SettingsRepositoryInterface, fallbackOrigins []string, log *zap.Logger, reloadInterval time.Duration) *CORSReloader {
	if log == nil {
		log = zap.NewNop()
	}
	return &CORSReloader{
		repo:     repo,
		fallback: fallbackOrigins,
		log:      log,
		interval: reloadInterval,
	}
}

// Middleware wraps next and performs the initial load
func (r *CORSReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.next = next
		r.load(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after Middleware() is applied.
func (r *CORSReloader) Start(ctx context.Context) {
	reloadEvery(ctx, r.interval, r.load)
}

func (r *CORSReloader) settings(ctx context.Context) models.CORSSettings {
	fallback := models.CORSSettings{AllowedOrigins: r.fallback, AllowCredentials: true, MaxAge: defaultCORSMaxAge}
	if r.repo == nil {
		return fallback
	}
	stored, err := r.repo.GetCORS(ctx)
	if err != nil {
		r.log.Warn("failed_to_load_cors_settings_using_fallback", zap.Error(err))
		return fallback
	}
	if stored == nil || len(stored.AllowedOrigins) == 0 {
		return fallback
	}
	return *stored
}

func (r *CORSReloader) load(ctx context.Context) {
	if r.next == nil {
		return
	}
	s := r.settings(ctx)
	origins := s.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: s.AllowCredentials,
		MaxAge:           s.MaxAge,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", request.RequestIDHeader},
		ExposedHeaders:   []string{request.RequestIDHeader},
	})
	r.swap(c.Handler(r.next))
}
