package segment

import (
	"testing"

	"github.com/benvon/personalization/internal/models"
)

func profileWith(mutate func(p *models.UserProfile)) *models.UserProfile {
	p := models.NewDefaultProfile("u1")
	p.ContentConsumption.TotalViews = 100
	mutate(p)
	return p
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		profile *models.UserProfile
		want    models.UserSegment
	}{
		{
			name:    "nil profile",
			profile: nil,
			want:    models.SegmentNewUser,
		},
		{
			name:    "three views is a new user",
			profile: profileWith(func(p *models.UserProfile) { p.ContentConsumption.TotalViews = 3 }),
			want:    models.SegmentNewUser,
		},
		{
			name: "new user wins over power user scores",
			profile: profileWith(func(p *models.UserProfile) {
				p.ContentConsumption.TotalViews = 4
				p.PersonalizationScores = models.PersonalizationScores{Engagement: 0.9, Creator: 0.9, Community: 0.9}
			}),
			want: models.SegmentNewUser,
		},
		{
			name: "power user",
			profile: profileWith(func(p *models.UserProfile) {
				p.PersonalizationScores = models.PersonalizationScores{Engagement: 0.71, Creator: 0.51, Community: 0.9}
			}),
			want: models.SegmentPowerUser,
		},
		{
			name: "community leader when creator score too low for power user",
			profile: profileWith(func(p *models.UserProfile) {
				p.PersonalizationScores = models.PersonalizationScores{Engagement: 0.9, Creator: 0.5, Community: 0.81}
			}),
			want: models.SegmentCommunityLeader,
		},
		{
			name: "safety advocate",
			profile: profileWith(func(p *models.UserProfile) {
				p.PersonalizationScores.Safety = 0.85
				p.RoutePreferences.SharedRoutes = 6
			}),
			want: models.SegmentSafetyAdvocate,
		},
		{
			name: "safety score without shared routes falls through",
			profile: profileWith(func(p *models.UserProfile) {
				p.PersonalizationScores.Safety = 0.85
				p.RoutePreferences.SharedRoutes = 5
			}),
			want: models.SegmentCasualConsumer,
		},
		{
			name: "active creator",
			profile: profileWith(func(p *models.UserProfile) {
				p.PersonalizationScores.Creator = 0.7
				p.ContentCreation.PostsCreated = 11
			}),
			want: models.SegmentActiveCreator,
		},
		{
			name: "casual creator",
			profile: profileWith(func(p *models.UserProfile) {
				p.PersonalizationScores.Creator = 0.7
				p.ContentCreation.PostsCreated = 10
			}),
			want: models.SegmentCasualCreator,
		},
		{
			name: "active consumer",
			profile: profileWith(func(p *models.UserProfile) {
				p.PersonalizationScores.Engagement = 0.6
				p.Engagement.LikesGiven = 21
			}),
			want: models.SegmentActiveConsumer,
		},
		{
			name:    "casual consumer fallback",
			profile: profileWith(func(p *models.UserProfile) {}),
			want:    models.SegmentCasualConsumer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.profile); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyAlwaysReturnsKnownSegment(t *testing.T) {
	t.Parallel()

	steps := []float64{0, 0.3, 0.55, 0.75, 0.85, 1}
	for _, e := range steps {
		for _, c := range steps {
			for _, m := range steps {
				p := profileWith(func(p *models.UserProfile) {
					p.PersonalizationScores = models.PersonalizationScores{Engagement: e, Creator: c, Community: m, Safety: m}
					p.ContentCreation.PostsCreated = int(c * 20)
				})
				if got := Classify(p); !got.Valid() {
					t.Fatalf("Classify() returned unknown segment %q", got)
				}
			}
		}
	}
}
