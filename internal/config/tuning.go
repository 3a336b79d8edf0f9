package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/benvon/personalization/internal/models"
	"gopkg.in/yaml.v3"
)

const weightSumTolerance = 1e-6

// Weights is one row of the ranking weight table. Rows must sum to 1.
type Weights struct {
	Relevance  float64 `yaml:"relevance" json:"relevance"`
	Quality    float64 `yaml:"quality" json:"quality"`
	Freshness  float64 `yaml:"freshness" json:"freshness"`
	Diversity  float64 `yaml:"diversity" json:"diversity"`
	Engagement float64 `yaml:"engagement" json:"engagement"`
	Social     float64 `yaml:"social" json:"social"`
}

// Sum returns the total of all six weights
func (w Weights) Sum() float64 {
	return w.Relevance + w.Quality + w.Freshness + w.Diversity + w.Engagement + w.Social
}

func (w Weights) validate() error {
	for _, v := range []float64{w.Relevance, w.Quality, w.Freshness, w.Diversity, w.Engagement, w.Social} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("weights must be non-negative")
		}
	}
	if math.Abs(w.Sum()-1) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1, got %.6f", w.Sum())
	}
	return nil
}

// RankingTuning parameterizes the content ranker and diversity reranker
type RankingTuning struct {
	SegmentWeights       map[models.UserSegment]Weights `yaml:"segment_weights" json:"segmentWeights"`
	DefaultWeights       Weights                        `yaml:"default_weights" json:"defaultWeights"`
	FreshnessDecayHours  float64                        `yaml:"freshness_decay_hours" json:"freshnessDecayHours"`
	DiversityBoostFactor float64                        `yaml:"diversity_boost_factor" json:"diversityBoostFactor"`
	RepeatAuthorPenalty  float64                        `yaml:"repeat_author_penalty" json:"repeatAuthorPenalty"`
}

// WeightsFor returns the weight row for a segment, falling back to the default row
func (r RankingTuning) WeightsFor(segment models.UserSegment) Weights {
	if w, ok := r.SegmentWeights[segment]; ok {
		return w
	}
	return r.DefaultWeights
}

// NotificationTuning holds the send throttling thresholds
type NotificationTuning struct {
	DailyCap          int           `yaml:"daily_cap" json:"dailyCap"`
	MinInterval       time.Duration `yaml:"min_interval" json:"minInterval"`
	QuietStartHour    int           `yaml:"quiet_start_hour" json:"quietStartHour"`
	QuietEndHour      int           `yaml:"quiet_end_hour" json:"quietEndHour"`
	DefaultPeakHours  []int         `yaml:"default_peak_hours" json:"defaultPeakHours"`
	HighSendThreshold float64       `yaml:"high_send_threshold" json:"highSendThreshold"`
	SendThreshold     float64       `yaml:"send_threshold" json:"sendThreshold"`
}

// ProfileTuning holds the profile builder's cut-offs
type ProfileTuning struct {
	SessionGap        time.Duration `yaml:"session_gap" json:"sessionGap"`
	PeakHourCount     int           `yaml:"peak_hour_count" json:"peakHourCount"`
	TopCreatorCount   int           `yaml:"top_creator_count" json:"topCreatorCount"`
	TopTagCount       int           `yaml:"top_tag_count" json:"topTagCount"`
	ViralNetUpvotes   int           `yaml:"viral_net_upvotes" json:"viralNetUpvotes"`
	ShortContentChars int           `yaml:"short_content_chars" json:"shortContentChars"`
	LongContentChars  int           `yaml:"long_content_chars" json:"longContentChars"`
}

// Tuning groups every hand-tuned scoring parameter
type Tuning struct {
	Ranking      RankingTuning      `yaml:"ranking" json:"ranking"`
	Notification NotificationTuning `yaml:"notification" json:"notification"`
	Profile      ProfileTuning      `yaml:"profile" json:"profile"`
}

// DefaultTuning returns the built-in parameter set
func DefaultTuning() Tuning {
	return Tuning{
		Ranking: RankingTuning{
			SegmentWeights: map[models.UserSegment]Weights{
				models.SegmentNewUser:         {Relevance: 0.15, Quality: 0.35, Freshness: 0.25, Diversity: 0.15, Engagement: 0.10, Social: 0.00},
				models.SegmentCasualConsumer:  {Relevance: 0.30, Quality: 0.25, Freshness: 0.20, Diversity: 0.10, Engagement: 0.10, Social: 0.05},
				models.SegmentActiveConsumer:  {Relevance: 0.30, Quality: 0.20, Freshness: 0.15, Diversity: 0.10, Engagement: 0.15, Social: 0.10},
				models.SegmentCasualCreator:   {Relevance: 0.25, Quality: 0.25, Freshness: 0.15, Diversity: 0.10, Engagement: 0.15, Social: 0.10},
				models.SegmentActiveCreator:   {Relevance: 0.25, Quality: 0.20, Freshness: 0.15, Diversity: 0.10, Engagement: 0.20, Social: 0.10},
				models.SegmentPowerUser:       {Relevance: 0.25, Quality: 0.20, Freshness: 0.10, Diversity: 0.15, Engagement: 0.15, Social: 0.15},
				models.SegmentCommunityLeader: {Relevance: 0.20, Quality: 0.20, Freshness: 0.10, Diversity: 0.10, Engagement: 0.15, Social: 0.25},
				models.SegmentSafetyAdvocate:  {Relevance: 0.40, Quality: 0.30, Freshness: 0.10, Diversity: 0.05, Engagement: 0.10, Social: 0.05},
			},
			DefaultWeights:       Weights{Relevance: 0.30, Quality: 0.25, Freshness: 0.15, Diversity: 0.10, Engagement: 0.15, Social: 0.05},
			FreshnessDecayHours:  24,
			DiversityBoostFactor: 0.2,
			RepeatAuthorPenalty:  0.9,
		},
		Notification: NotificationTuning{
			DailyCap:          10,
			MinInterval:       2 * time.Hour,
			QuietStartHour:    23,
			QuietEndHour:      7,
			DefaultPeakHours:  append([]int(nil), models.DefaultPeakActivityHours...),
			HighSendThreshold: 0.5,
			SendThreshold:     0.6,
		},
		Profile: ProfileTuning{
			SessionGap:        30 * time.Minute,
			PeakHourCount:     4,
			TopCreatorCount:   10,
			TopTagCount:       5,
			ViralNetUpvotes:   50,
			ShortContentChars: 280,
			LongContentChars:  1000,
		},
	}
}

// LoadTuning reads a YAML tuning file layered over the defaults and validates the result
func LoadTuning(path string) (*Tuning, error) {
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}
	return ParseTuning(data)
}

// ParseTuning decodes YAML over the defaults; keys absent from the document keep their default
func ParseTuning(data []byte) (*Tuning, error) {
	t := DefaultTuning()
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}
	return &t, nil
}

// Marshal renders the tuning as a YAML document
func (t Tuning) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tuning: %w", err)
	}
	return data, nil
}

// Validate checks weight rows, hours and thresholds
func (t Tuning) Validate() error {
	var errs []error

	for segment, w := range t.Ranking.SegmentWeights {
		if !segment.Valid() {
			errs = append(errs, fmt.Errorf("unknown segment %q in segment_weights", segment))
			continue
		}
		if err := w.validate(); err != nil {
			errs = append(errs, fmt.Errorf("segment %s: %w", segment, err))
		}
	}
	if err := t.Ranking.DefaultWeights.validate(); err != nil {
		errs = append(errs, fmt.Errorf("default_weights: %w", err))
	}
	if t.Ranking.FreshnessDecayHours <= 0 {
		errs = append(errs, errors.New("freshness_decay_hours must be positive"))
	}
	if t.Ranking.DiversityBoostFactor < 0 {
		errs = append(errs, errors.New("diversity_boost_factor must be non-negative"))
	}
	if t.Ranking.RepeatAuthorPenalty <= 0 || t.Ranking.RepeatAuthorPenalty > 1 {
		errs = append(errs, errors.New("repeat_author_penalty must be in (0,1]"))
	}

	n := t.Notification
	if n.DailyCap <= 0 {
		errs = append(errs, errors.New("daily_cap must be positive"))
	}
	if n.MinInterval <= 0 {
		errs = append(errs, errors.New("min_interval must be positive"))
	}
	if !validHour(n.QuietStartHour) || !validHour(n.QuietEndHour) {
		errs = append(errs, errors.New("quiet hours must be in 0-23"))
	}
	for _, h := range n.DefaultPeakHours {
		if !validHour(h) {
			errs = append(errs, fmt.Errorf("default_peak_hours contains invalid hour %d", h))
		}
	}
	if n.HighSendThreshold < 0 || n.HighSendThreshold > 1 || n.SendThreshold < 0 || n.SendThreshold > 1 {
		errs = append(errs, errors.New("send thresholds must be in [0,1]"))
	}

	p := t.Profile
	if p.SessionGap <= 0 {
		errs = append(errs, errors.New("session_gap must be positive"))
	}
	if p.PeakHourCount <= 0 || p.PeakHourCount > 24 {
		errs = append(errs, errors.New("peak_hour_count must be in 1-24"))
	}
	if p.TopCreatorCount <= 0 || p.TopTagCount <= 0 {
		errs = append(errs, errors.New("top_creator_count and top_tag_count must be positive"))
	}
	if p.ShortContentChars <= 0 || p.LongContentChars <= p.ShortContentChars {
		errs = append(errs, errors.New("content length cut-offs must satisfy 0 < short < long"))
	}

	return errors.Join(errs...)
}

// InQuietHours reports whether hour falls in the quiet window, which may wrap midnight
func (n NotificationTuning) InQuietHours(hour int) bool {
	if n.QuietStartHour == n.QuietEndHour {
		return false
	}
	if n.QuietStartHour < n.QuietEndHour {
		return hour >= n.QuietStartHour && hour < n.QuietEndHour
	}
	return hour >= n.QuietStartHour || hour < n.QuietEndHour
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}
