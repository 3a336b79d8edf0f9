package database

import (
	"context"
	"time"

	"github.com/benvon/personalization/internal/models"
)

// ProfileRepositoryInterface defines the profile snapshot operations used by the cache and handlers
type ProfileRepositoryInterface interface {
	Upsert(ctx context.Context, snapshot *models.ProfileSnapshot) error
	GetByUserID(ctx context.Context, userID string) (*models.ProfileSnapshot, error)
	SegmentCounts(ctx context.Context) (map[models.UserSegment]int, error)
}

// ActivityRepositoryInterface defines the activity store reads used by the rebuild workers
type ActivityRepositoryInterface interface {
	LoadUser(ctx context.Context, userID string) (*models.UserRecord, error)
	LoadActivity(ctx context.Context, userID string, since time.Time) (*models.Activity, error)
	ListActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}

// SettingsRepositoryInterface defines the runtime settings reads used by the reloaders
type SettingsRepositoryInterface interface {
	GetRateLimit(ctx context.Context) (*models.RateLimitSettings, error)
	GetCORS(ctx context.Context) (*models.CORSSettings, error)
}

// Ensure concrete types implement the interfaces
var (
	_ ProfileRepositoryInterface  = (*ProfileRepository)(nil)
	_ ActivityRepositoryInterface = (*ActivityRepository)(nil)
	_ SettingsRepositoryInterface = (*SettingsRepository)(nil)
)
