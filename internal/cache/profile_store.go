package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/personalization/internal/database"
	"github.com/benvon/personalization/internal/logger"
	"github.com/benvon/personalization/internal/metrics"
	"github.com/benvon/personalization/internal/models"
	"github.com/benvon/personalization/internal/services/segment"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	profileKeyPrefix  = "personalization:profile:"
	defaultProfileTTL = 24 * time.Hour
	cacheOpTimeout    = 250 * time.Millisecond
	breakerName       = "profile_cache"
	breakerThreshold  = 5
)

// StoreOptions configures a ProfileStore
type StoreOptions struct {
	TTL              time.Duration
	BreakerTimeout   time.Duration // how long the breaker stays open
	FailureThreshold uint32
}

// ProfileStore returns the latest completed profile snapshot per user.
// Reads go to the cache first and fall back to Postgres; a user with no
// stored snapshot gets the default profile.
type ProfileStore struct {
	cache   Cache
	repo    database.ProfileRepositoryInterface
	breaker *gobreaker.CircuitBreaker[[]byte]
	ttl     time.Duration
	logger  *zap.Logger
}

// NewProfileStore creates a store. Either cache or repo may be nil.
func NewProfileStore(c Cache, repo database.ProfileRepositoryInterface, opts StoreOptions, log *zap.Logger) *ProfileStore {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultProfileTTL
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = breakerThreshold
	}

	s := &ProfileStore{cache: c, repo: repo, ttl: opts.TTL, logger: log}
	s.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			log.Warn("circuit_breaker_state_changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return s
}

// BreakerState reports the cache circuit breaker state
func (s *ProfileStore) BreakerState() string {
	return s.breaker.State().String()
}

// Latest returns the user's most recent snapshot. A missing snapshot is not an error.
func (s *ProfileStore) Latest(ctx context.Context, userID string) (*models.ProfileSnapshot, error) {
	if snap, ok := s.fromCache(ctx, userID); ok {
		return snap, nil
	}

	if s.repo == nil {
		return DefaultSnapshot(userID), nil
	}
	snap, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, database.ErrProfileNotFound) {
		return DefaultSnapshot(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	s.toCache(ctx, snap)
	return snap, nil
}

// Save persists the snapshot and refreshes the cache entry
func (s *ProfileStore) Save(ctx context.Context, snap *models.ProfileSnapshot) error {
	if snap == nil || snap.Profile == nil {
		return fmt.Errorf("snapshot profile is required")
	}
	if s.repo != nil {
		if err := s.repo.Upsert(ctx, snap); err != nil {
			return err
		}
	} else {
		now := time.Now().UTC()
		if snap.CreatedAt.IsZero() {
			snap.CreatedAt = now
		}
		snap.UpdatedAt = now
		snap.Version++
	}
	s.toCache(ctx, snap)
	return nil
}

// DefaultSnapshot is the snapshot served for a user with no stored profile
func DefaultSnapshot(userID string) *models.ProfileSnapshot {
	p := models.NewDefaultProfile(userID)
	return &models.ProfileSnapshot{
		Profile: p,
		Segment: segment.Classify(p),
	}
}

func (s *ProfileStore) fromCache(ctx context.Context, userID string) (*models.ProfileSnapshot, bool) {
	if s.cache == nil {
		metrics.RecordCacheResult("bypass")
		return nil, false
	}

	data, err := s.breaker.Execute(func() ([]byte, error) {
		opCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
		defer cancel()
		return s.cache.Get(opCtx, profileKey(userID))
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrCacheMiss):
		metrics.RecordCacheResult("miss")
		return nil, false
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordCacheResult("bypass")
		return nil, false
	default:
		metrics.RecordCacheResult("error")
		s.logger.Warn("profile_cache_get_failed",
			zap.String("user_id", logger.SanitizeUserID(userID)),
			zap.Error(err))
		return nil, false
	}

	snap := &models.ProfileSnapshot{}
	if err := json.Unmarshal(data, snap); err != nil || snap.Profile == nil {
		metrics.RecordCacheResult("error")
		s.logger.Warn("profile_cache_decode_failed",
			zap.String("user_id", logger.SanitizeUserID(userID)),
			zap.Error(err))
		return nil, false
	}
	metrics.RecordCacheResult("hit")
	return snap, true
}

func (s *ProfileStore) toCache(ctx context.Context, snap *models.ProfileSnapshot) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn("profile_cache_encode_failed", zap.Error(err))
		return
	}
	_, err = s.breaker.Execute(func() ([]byte, error) {
		opCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
		defer cancel()
		return nil, s.cache.Set(opCtx, profileKey(snap.Profile.UserID), data, s.ttl)
	})
	if err != nil && !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Warn("profile_cache_set_failed",
			zap.String("user_id", logger.SanitizeUserID(snap.Profile.UserID)),
			zap.Error(err))
	}
}

func profileKey(userID string) string {
	return profileKeyPrefix + userID
}
