// Package notification scores candidate notifications and decides whether and when to send them.
package notification

import (
	"math"
	"sort"
	"time"

	"github.com/benvon/personalization/internal/config"
	"github.com/benvon/personalization/internal/models"
)

const (
	peakTimingScore      = 0.8
	offPeakTimingScore   = 0.4
	quietHoursFactor     = 0.3
	recentSendFactor     = 0.2
	urgentFloor          = 0.9
	urgentRelevanceBoost = 1.3
	lowRelevanceFactor   = 0.7
	noHistoryCTR         = 0.5
	capPressureStart     = 0.7

	relevanceWeight = 0.5
	timingWeight    = 0.3
	frequencyWeight = 0.2
)

type relevanceRow struct {
	bySegment map[models.UserSegment]float64
	fallback  float64
}

// relevanceTable is the type x segment lookup used before priority scaling
var relevanceTable = map[models.NotificationType]relevanceRow{
	models.NotificationSafety: {
		bySegment: map[models.UserSegment]float64{models.SegmentSafetyAdvocate: 1.0},
		fallback:  0.7,
	},
	models.NotificationCredit: {
		fallback: 0.8,
	},
	models.NotificationEngagement: {
		bySegment: map[models.UserSegment]float64{
			models.SegmentNewUser:        0.8,
			models.SegmentCasualConsumer: 0.7,
			models.SegmentActiveConsumer: 0.6,
		},
		fallback: 0.5,
	},
	models.NotificationContent: {
		bySegment: map[models.UserSegment]float64{
			models.SegmentActiveConsumer: 0.8,
			models.SegmentCasualConsumer: 0.7,
			models.SegmentPowerUser:      0.7,
		},
		fallback: 0.6,
	},
	models.NotificationSocial: {
		bySegment: map[models.UserSegment]float64{
			models.SegmentCommunityLeader: 0.9,
			models.SegmentPowerUser:       0.8,
			models.SegmentActiveCreator:   0.7,
			models.SegmentCasualCreator:   0.7,
		},
		fallback: 0.5,
	},
	models.NotificationAchievement: {
		bySegment: map[models.UserSegment]float64{
			models.SegmentActiveCreator: 0.8,
			models.SegmentPowerUser:     0.8,
			models.SegmentCasualCreator: 0.7,
			models.SegmentNewUser:       0.7,
		},
		fallback: 0.6,
	},
}

// unknown types fall back to this relevance
const defaultRelevance = 0.5

// Scorer computes relevance, timing and frequency scores for candidate notifications.
// It holds configuration only and is safe for concurrent use.
type Scorer struct {
	tuning config.NotificationTuning
	now    func() time.Time
}

// NewScorer creates a notification scorer
func NewScorer(tuning config.NotificationTuning) *Scorer {
	return &Scorer{tuning: tuning, now: time.Now}
}

// WithClock returns a copy of the scorer that reads the current time from now
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	cp := *s
	cp.now = now
	return &cp
}

// Score evaluates every candidate against the profile and today's send history.
// The result is sorted by total score descending; equal scores keep input order.
func (s *Scorer) Score(candidates []models.NotificationTemplate, profile *models.UserProfile, segment models.UserSegment, history models.NotificationContext) []models.ScoredNotification {
	if profile == nil {
		profile = models.NewDefaultProfile("")
	}
	now := s.now()
	peaks := s.peakHours(profile)
	recentlySent := s.sentRecently(history, now)

	out := make([]models.ScoredNotification, 0, len(candidates))
	for _, tmpl := range candidates {
		urgent := tmpl.Priority == models.PriorityUrgent

		rel := relevance(tmpl, segment)
		timing := s.timing(now, peaks, recentlySent, urgent)
		freq := s.frequency(history, urgent)
		total := relevanceWeight*rel + timingWeight*timing + frequencyWeight*freq

		sendAt := s.optimalSendTime(now, peaks, urgent)
		out = append(out, models.ScoredNotification{
			NotificationTemplate: tmpl,
			RelevanceScore:       rel,
			TimingScore:          timing,
			FrequencyScore:       freq,
			TotalScore:           total,
			ShouldSend:           s.shouldSend(tmpl.Priority, total, history, recentlySent),
			OptimalSendTime:      &sendAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	return out
}

func relevance(tmpl models.NotificationTemplate, segment models.UserSegment) float64 {
	score := defaultRelevance
	if row, ok := relevanceTable[tmpl.Type]; ok {
		score = row.fallback
		if v, ok := row.bySegment[segment]; ok {
			score = v
		}
	}
	switch tmpl.Priority {
	case models.PriorityUrgent:
		score = math.Min(1, score*urgentRelevanceBoost)
	case models.PriorityLow:
		score *= lowRelevanceFactor
	}
	return score
}

func (s *Scorer) timing(now time.Time, peaks []int, recentlySent, urgent bool) float64 {
	score := offPeakTimingScore
	if containsHour(peaks, now.Hour()) {
		score = peakTimingScore
	}
	if s.tuning.InQuietHours(now.Hour()) {
		score *= quietHoursFactor
	}
	if recentlySent {
		score *= recentSendFactor
	}
	if urgent {
		score = math.Max(score, urgentFloor)
	}
	return score
}

func (s *Scorer) frequency(history models.NotificationContext, urgent bool) float64 {
	score := noHistoryCTR
	if history.NotificationsSentToday > 0 {
		score = clamp01(float64(history.NotificationsClickedToday) / float64(history.NotificationsSentToday))
	}
	utilization := float64(history.NotificationsSentToday) / float64(max(1, s.tuning.DailyCap))
	if utilization > capPressureStart {
		score = clamp01(score * (1 - utilization))
	}
	if urgent {
		score = math.Max(score, urgentFloor)
	}
	return score
}

func (s *Scorer) shouldSend(priority models.Priority, total float64, history models.NotificationContext, recentlySent bool) bool {
	switch {
	case priority == models.PriorityUrgent:
		return true
	case history.NotificationsSentToday >= s.tuning.DailyCap:
		return false
	case recentlySent:
		return false
	case priority == models.PriorityHigh:
		return total >= s.tuning.HighSendThreshold
	default:
		return total >= s.tuning.SendThreshold
	}
}

// sentRecently reports whether the last send is within the minimum interval.
// A last-sent time in the future counts as just sent.
func (s *Scorer) sentRecently(history models.NotificationContext, now time.Time) bool {
	if history.LastNotificationSentAt == nil {
		return false
	}
	return now.Sub(*history.LastNotificationSentAt) < s.tuning.MinInterval
}

// optimalSendTime is now for urgent notifications, otherwise the start of the next
// peak hour after the current hour, rolling over to tomorrow's first peak
func (s *Scorer) optimalSendTime(now time.Time, peaks []int, urgent bool) time.Time {
	if urgent || len(peaks) == 0 {
		return now
	}
	y, m, d := now.Date()
	for _, h := range peaks {
		if h > now.Hour() {
			return time.Date(y, m, d, h, 0, 0, 0, now.Location())
		}
	}
	return time.Date(y, m, d+1, peaks[0], 0, 0, 0, now.Location())
}

// peakHours returns the profile's valid peak hours sorted and de-duplicated,
// falling back to the configured defaults
func (s *Scorer) peakHours(p *models.UserProfile) []int {
	source := p.ContentConsumption.PeakActivityHours
	if len(source) == 0 {
		source = s.tuning.DefaultPeakHours
	}
	seen := make(map[int]struct{}, len(source))
	hours := make([]int, 0, len(source))
	for _, h := range source {
		if h < 0 || h > 23 {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		hours = append(hours, h)
	}
	sort.Ints(hours)
	return hours
}

func containsHour(hours []int, hour int) bool {
	for _, h := range hours {
		if h == hour {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
