package ranking

import (
	"sort"

	"github.com/benvon/personalization/internal/config"
	"github.com/benvon/personalization/internal/models"
)

// DiversityReranker rewards the first item of each life dimension and
// penalizes authors that already appeared higher in the list.
type DiversityReranker struct {
	boostFactor   float64
	authorPenalty float64
}

// NewDiversityReranker creates a reranker from the ranking tuning
func NewDiversityReranker(tuning config.RankingTuning) *DiversityReranker {
	return &DiversityReranker{
		boostFactor:   tuning.DiversityBoostFactor,
		authorPenalty: tuning.RepeatAuthorPenalty,
	}
}

// Rerank makes one left-to-right pass over an already ranked list and re-sorts by the adjusted score.
// The input slice is not modified.
func (d *DiversityReranker) Rerank(scored []models.ScoredContent, profile *models.UserProfile) []models.ScoredContent {
	exploration := 0.0
	if profile != nil {
		exploration = profile.PersonalizationScores.Exploration
	}
	return d.rerank(scored, exploration, map[models.LifeDimension]struct{}{}, map[string]struct{}{})
}

func (d *DiversityReranker) rerank(scored []models.ScoredContent, exploration float64, seenDims map[models.LifeDimension]struct{}, seenAuthors map[string]struct{}) []models.ScoredContent {
	out := make([]models.ScoredContent, len(scored))
	copy(out, scored)

	boost := 1 + exploration*d.boostFactor
	for i := range out {
		item := &out[i]
		if dim := item.LifeDimension; dim != "" {
			if _, seen := seenDims[dim]; !seen {
				item.Score *= boost
				seenDims[dim] = struct{}{}
			}
		}
		if author := item.AuthorID; author != "" {
			if _, seen := seenAuthors[author]; seen {
				item.Score *= d.authorPenalty
			}
			seenAuthors[author] = struct{}{}
		}
		item.Score = clamp01(item.Score)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Feed ranks candidates, applies the diversity pass and truncates to limit when limit > 0
func Feed(r *Ranker, d *DiversityReranker, candidates []models.ContentItem, profile *models.UserProfile, segment models.UserSegment, recentlyViewedIDs []string, limit int) []models.ScoredContent {
	ranked := d.Rerank(r.Rank(candidates, profile, segment, recentlyViewedIDs), profile)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
