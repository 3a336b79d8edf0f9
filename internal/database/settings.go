package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/personalization/internal/models"
	"github.com/goccy/go-json"
)

// Setting keys stored in service_settings
const (
	SettingRateLimit = "ratelimit"
	SettingCORS      = "cors"
)

// SettingsRepository stores operator-editable runtime settings as JSONB documents
type SettingsRepository struct {
	db *DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetRateLimit returns the stored rate limit, or nil when none is stored
func (r *SettingsRepository) GetRateLimit(ctx context.Context) (*models.RateLimitSettings, error) {
	s := &models.RateLimitSettings{}
	found, err := r.get(ctx, SettingRateLimit, s)
	if err != nil || !found {
		return nil, err
	}
	return s, nil
}

// SetRateLimit stores the rate limit. Rate format: e.g. "5-S", "100-M".
func (r *SettingsRepository) SetRateLimit(ctx context.Context, s *models.RateLimitSettings) error {
	s.Rate = strings.TrimSpace(s.Rate)
	if s.Rate == "" {
		return fmt.Errorf("rate cannot be empty")
	}
	return r.set(ctx, SettingRateLimit, s)
}

// GetCORS returns the stored CORS settings, or nil when none are stored
func (r *SettingsRepository) GetCORS(ctx context.Context) (*models.CORSSettings, error) {
	s := &models.CORSSettings{}
	found, err := r.get(ctx, SettingCORS, s)
	if err != nil || !found {
		return nil, err
	}
	return s, nil
}

// SetCORS stores the CORS settings
func (r *SettingsRepository) SetCORS(ctx context.Context, s *models.CORSSettings) error {
	if len(s.AllowedOrigins) == 0 {
		return fmt.Errorf("allowed origins cannot be empty")
	}
	return r.set(ctx, SettingCORS, s)
}

// List returns every stored setting as raw JSON keyed by setting key
func (r *SettingsRepository) List(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT setting_key, value FROM service_settings ORDER BY setting_key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settings: %w", err)
	}
	return out, nil
}

func (r *SettingsRepository) get(ctx context.Context, key string, dest any) (bool, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM service_settings WHERE setting_key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s settings: %w", key, err)
	}
	if err := json.Unmarshal(value, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s settings: %w", key, err)
	}
	return true, nil
}

func (r *SettingsRepository) set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s settings: %w", key, err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO service_settings (setting_key, value, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (setting_key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, key, data)
	if err != nil {
		return fmt.Errorf("failed to set %s settings: %w", key, err)
	}
	return nil
}
