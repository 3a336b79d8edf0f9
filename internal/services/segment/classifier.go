// Package segment maps user profiles onto behavioral segments.
package segment

import "github.com/benvon/personalization/internal/models"

type rule struct {
	segment models.UserSegment
	match   func(p *models.UserProfile) bool
}

// rules are evaluated in order; the first match wins
var rules = []rule{
	{models.SegmentNewUser, func(p *models.UserProfile) bool {
		return p.ContentConsumption.TotalViews < 5
	}},
	{models.SegmentPowerUser, func(p *models.UserProfile) bool {
		s := p.PersonalizationScores
		return s.Engagement > 0.7 && s.Creator > 0.5 && s.Community > 0.7
	}},
	{models.SegmentCommunityLeader, func(p *models.UserProfile) bool {
		return p.PersonalizationScores.Community > 0.8
	}},
	{models.SegmentSafetyAdvocate, func(p *models.UserProfile) bool {
		return p.PersonalizationScores.Safety > 0.8 && p.RoutePreferences.SharedRoutes > 5
	}},
	{models.SegmentActiveCreator, func(p *models.UserProfile) bool {
		return p.PersonalizationScores.Creator > 0.6 && p.ContentCreation.PostsCreated > 10
	}},
	{models.SegmentCasualCreator, func(p *models.UserProfile) bool {
		return p.PersonalizationScores.Creator > 0.3 && p.ContentCreation.PostsCreated > 3
	}},
	{models.SegmentActiveConsumer, func(p *models.UserProfile) bool {
		return p.PersonalizationScores.Engagement > 0.5 && p.Engagement.LikesGiven > 20
	}},
}

// Classify assigns exactly one segment to a profile. A nil profile is a new user.
func Classify(p *models.UserProfile) models.UserSegment {
	if p == nil {
		return models.SegmentNewUser
	}
	for _, r := range rules {
		if r.match(p) {
			return r.segment
		}
	}
	return models.SegmentCasualConsumer
}
