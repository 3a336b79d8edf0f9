// Package ranking scores feed candidates for a user and reorders them for topical diversity.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/benvon/personalization/internal/config"
	"github.com/benvon/personalization/internal/models"
)

const (
	verifiedThreshold     = 5
	longTextChars         = 100
	velocityScale         = 10.0
	similarUserSocial     = 0.7
	unknownDimensionScore = 0.5
)

// Ranker computes six sub-scores per candidate and combines them with the segment's weight row.
// It holds configuration only and is safe for concurrent use.
type Ranker struct {
	tuning config.RankingTuning
	now    func() time.Time
}

// NewRanker creates a content ranker
func NewRanker(tuning config.RankingTuning) *Ranker {
	return &Ranker{tuning: tuning, now: time.Now}
}

// WithClock returns a copy of the ranker that reads the current time from now
func (r *Ranker) WithClock(now func() time.Time) *Ranker {
	cp := *r
	cp.now = now
	return &cp
}

// Rank drops recently viewed candidates and returns the rest scored and sorted by score descending.
// Candidates with equal scores keep their input order.
func (r *Ranker) Rank(candidates []models.ContentItem, profile *models.UserProfile, segment models.UserSegment, recentlyViewedIDs []string) []models.ScoredContent {
	if profile == nil {
		profile = models.NewDefaultProfile("")
	}
	viewed := make(map[string]struct{}, len(recentlyViewedIDs))
	for _, id := range recentlyViewedIDs {
		viewed[id] = struct{}{}
	}

	weights := r.tuning.WeightsFor(segment)
	now := r.now()
	dimTotal := 0
	for _, n := range profile.ContentConsumption.ViewsByDimension {
		dimTotal += n
	}

	scored := make([]models.ScoredContent, 0, len(candidates))
	for _, item := range candidates {
		if _, skip := viewed[item.ID]; skip {
			continue
		}
		b := models.ScoreBreakdown{
			Relevance:  relevance(&item, profile),
			Quality:    quality(&item),
			Freshness:  r.freshness(item.CreatedAt, now),
			Diversity:  diversity(&item, profile, dimTotal),
			Engagement: engagement(&item, now),
			Social:     social(&item, profile),
		}
		scored = append(scored, models.ScoredContent{
			ContentItem:    item,
			Score:          clamp01(combine(weights, b)),
			ScoreBreakdown: b,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func combine(w config.Weights, b models.ScoreBreakdown) float64 {
	return w.Relevance*b.Relevance +
		w.Quality*b.Quality +
		w.Freshness*b.Freshness +
		w.Diversity*b.Diversity +
		w.Engagement*b.Engagement +
		w.Social*b.Social
}

func relevance(item *models.ContentItem, p *models.UserProfile) float64 {
	score := 0.0
	if item.LifeDimension != "" {
		score += 0.4 * p.MLFeatures.ContentAffinityScores[item.LifeDimension]
	}

	typeViews := p.ContentConsumption.ViewsByType[item.Type]
	score += 0.3 * float64(typeViews) / float64(max(1, p.ContentConsumption.TotalViews))

	if len(item.Tags) > 0 {
		preferred := make(map[string]struct{}, len(p.RoutePreferences.PreferredTags))
		for _, tag := range p.RoutePreferences.PreferredTags {
			preferred[tag] = struct{}{}
		}
		matched := 0
		for _, tag := range item.Tags {
			if _, ok := preferred[tag]; ok {
				matched++
			}
		}
		score += 0.2 * float64(matched) / float64(len(item.Tags))
	}

	if p.IsTopEngagedCreator(item.AuthorID) {
		score += 0.1
	}
	return clamp01(score)
}

func quality(item *models.ContentItem) float64 {
	rate := float64(item.Interactions()) / float64(max(1, item.Views))
	score := 0.3 * math.Min(0.3, 3*rate)

	netRatio := float64(item.Upvotes-item.Downvotes) / float64(max(1, item.Upvotes+item.Downvotes))
	score += 0.3 * math.Max(0, netRatio)

	score += 0.2 * clamp01(item.AuthorTrustScore/100)

	if (item.IsVerified != nil && *item.IsVerified) || (item.VerificationCount != nil && *item.VerificationCount >= verifiedThreshold) {
		score += 0.1
	}
	if item.HasMedia {
		score += 0.05
	}
	if item.TextLength > longTextChars {
		score += 0.05
	}
	return clamp01(score)
}

// freshness decays exponentially with age; items dated in the future count as brand new
func (r *Ranker) freshness(createdAt, now time.Time) float64 {
	ageHours := math.Max(0, now.Sub(createdAt).Hours())
	return clamp01(math.Exp(-ageHours / r.tuning.FreshnessDecayHours))
}

func diversity(item *models.ContentItem, p *models.UserProfile, dimTotal int) float64 {
	if item.LifeDimension == "" {
		return unknownDimensionScore
	}
	views := p.ContentConsumption.ViewsByDimension[item.LifeDimension]
	return clamp01(1 - float64(views)/float64(max(1, dimTotal)))
}

// engagement is a sigmoid of interactions per day of age
func engagement(item *models.ContentItem, now time.Time) float64 {
	ageDays := math.Max(1, now.Sub(item.CreatedAt).Hours()/24)
	velocity := float64(item.Interactions()) / ageDays
	return clamp01(1 / (1 + math.Exp(-velocity/velocityScale)))
}

func social(item *models.ContentItem, p *models.UserProfile) float64 {
	switch {
	case p.IsTopEngagedCreator(item.AuthorID):
		return 1
	case p.IsSimilarUser(item.AuthorID):
		return similarUserSocial
	default:
		return 0
	}
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
