package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/benvon/personalization/internal/models"
	"github.com/goccy/go-json"
)

// ErrProfileNotFound is returned when no snapshot has been stored for a user yet
var ErrProfileNotFound = errors.New("profile snapshot not found")

// ProfileRepository stores the latest completed profile snapshot per user
type ProfileRepository struct {
	db *DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Upsert replaces the user's snapshot and bumps its version
func (r *ProfileRepository) Upsert(ctx context.Context, snapshot *models.ProfileSnapshot) error {
	if snapshot == nil || snapshot.Profile == nil {
		return fmt.Errorf("snapshot profile is required")
	}
	profileJSON, err := json.Marshal(snapshot.Profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	query := `
		INSERT INTO profile_snapshots (user_id, segment, profile, version, created_at, updated_at)
		VALUES ($1, $2, $3, 1, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET segment = EXCLUDED.segment,
		    profile = EXCLUDED.profile,
		    version = profile_snapshots.version + 1,
		    updated_at = NOW()
		RETURNING version, created_at, updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		snapshot.Profile.UserID,
		string(snapshot.Segment),
		profileJSON,
	).Scan(&snapshot.Version, &snapshot.CreatedAt, &snapshot.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert profile snapshot: %w", err)
	}
	return nil
}

// GetByUserID returns the stored snapshot or ErrProfileNotFound
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.ProfileSnapshot, error) {
	query := `
		SELECT segment, profile, version, created_at, updated_at
		FROM profile_snapshots
		WHERE user_id = $1
	`
	snapshot := &models.ProfileSnapshot{}
	var segment string
	var profileJSON []byte
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&segment,
		&profileJSON,
		&snapshot.Version,
		&snapshot.CreatedAt,
		&snapshot.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile snapshot: %w", err)
	}

	snapshot.Segment = models.UserSegment(segment)
	snapshot.Profile = &models.UserProfile{}
	if err := json.Unmarshal(profileJSON, snapshot.Profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return snapshot, nil
}

// SegmentCounts returns how many stored profiles fall into each segment
func (r *ProfileRepository) SegmentCounts(ctx context.Context) (map[models.UserSegment]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT segment, COUNT(*) FROM profile_snapshots GROUP BY segment`)
	if err != nil {
		return nil, fmt.Errorf("failed to count segments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[models.UserSegment]int)
	for rows.Next() {
		var segment string
		var n int
		if err := rows.Scan(&segment, &n); err != nil {
			return nil, fmt.Errorf("failed to scan segment count: %w", err)
		}
		counts[models.UserSegment(segment)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate segment counts: %w", err)
	}
	return counts, nil
}
