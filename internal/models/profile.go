package models

import "time"

// Defaults applied when a user has no route or activity history
const (
	DefaultPreferredDistance = 5000.0
	DefaultPreferredDuration = 1800.0
	DefaultSafetyThreshold   = 3.5
	DefaultSafetyScore       = 0.5
)

// DefaultPeakActivityHours is used when no activity timestamps are available
var DefaultPeakActivityHours = []int{9, 12, 18, 21}

// UserProfile is the derived per-user state rebuilt periodically from activity records
type UserProfile struct {
	UserID                string                `json:"userId"`
	Demographics          Demographics          `json:"demographics"`
	ContentConsumption    ContentConsumption    `json:"contentConsumption"`
	Engagement            EngagementStats       `json:"engagement"`
	RoutePreferences      RoutePreferences      `json:"routePreferences"`
	CreditBehavior        CreditBehavior        `json:"creditBehavior"`
	SocialGraph           SocialGraph           `json:"socialGraph"`
	ContentCreation       ContentCreation       `json:"contentCreation"`
	PersonalizationScores PersonalizationScores `json:"personalizationScores"`
	MLFeatures            MLFeatures            `json:"mlFeatures"`
	LastUpdated           time.Time             `json:"lastUpdated"`
}

// Demographics holds optional free-text user attributes
type Demographics struct {
	Location    string   `json:"location,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	CareerGoals []string `json:"careerGoals,omitempty"`
	Interests   []string `json:"interests,omitempty"`
}

// ContentConsumption summarizes what the user views and when
type ContentConsumption struct {
	TotalViews             int                   `json:"totalViews"`
	ViewsByDimension       map[LifeDimension]int `json:"viewsByDimension"`
	ViewsByType            map[ContentType]int   `json:"viewsByType"`
	AvgSessionDuration     float64               `json:"avgSessionDuration"` // seconds
	PeakActivityHours      []int                 `json:"peakActivityHours"`
	PreferredContentLength ContentLength         `json:"preferredContentLength"`
}

// EngagementStats counts interactions the user has given
type EngagementStats struct {
	LikesGiven         int      `json:"likesGiven"`
	CommentsGiven      int      `json:"commentsGiven"`
	SharesGiven        int      `json:"sharesGiven"`
	VerificationsGiven int      `json:"verificationsGiven"`
	EngagementRate     float64  `json:"engagementRate"`
	TopEngagedCreators []string `json:"topEngagedCreators"`
}

// RoutePreferences describes the routes the user walks or shares
type RoutePreferences struct {
	PreferredDistance float64  `json:"preferredDistance"` // meters
	PreferredDuration float64  `json:"preferredDuration"` // seconds
	PreferredTags     []string `json:"preferredTags"`
	SafetyThreshold   float64  `json:"safetyThreshold"`
	CompletedRoutes   int      `json:"completedRoutes"`
	SharedRoutes      int      `json:"sharedRoutes"`
}

// CreditBehavior summarizes earned and spent platform credits
type CreditBehavior struct {
	TotalEarned        float64            `json:"totalEarned"`
	TotalSpent         float64            `json:"totalSpent"`
	AvgMonthlyEarnings float64            `json:"avgMonthlyEarnings"`
	SpendByCategory    map[string]float64 `json:"spendByCategory"`
	SavingsRate        float64            `json:"savingsRate"` // may be negative, never above 1
}

// SocialGraph summarizes follower and messaging activity
type SocialGraph struct {
	FollowerCount    int     `json:"followerCount"`
	FollowingCount   int     `json:"followingCount"`
	MessagesSent     int     `json:"messagesSent"`
	MessagesReceived int     `json:"messagesReceived"`
	ResponseRate     float64 `json:"responseRate"`
}

// ContentCreation summarizes content the user has authored
type ContentCreation struct {
	PostsCreated         int     `json:"postsCreated"`
	RoutesCreated        int     `json:"routesCreated"`
	OpportunitiesCreated int     `json:"opportunitiesCreated"`
	AvgPostQuality       float64 `json:"avgPostQuality"` // net votes per post
	ViralPosts           int     `json:"viralPosts"`
}

// PersonalizationScores are the five derived scores, each in [0,1]
type PersonalizationScores struct {
	Exploration float64 `json:"explorationScore"`
	Engagement  float64 `json:"engagementScore"`
	Creator     float64 `json:"creatorScore"`
	Community   float64 `json:"communityScore"`
	Safety      float64 `json:"safetyScore"`
}

// MLFeatures holds normalized affinity weights and similar-user ids
type MLFeatures struct {
	ContentAffinityScores map[LifeDimension]float64 `json:"contentAffinityScores"`
	SimilarUsers          []string                  `json:"similarUsers"`
}

// NewDefaultProfile returns the profile used for a user with no activity.
// Callers that have no snapshot yet use it instead of treating the absence as an error.
func NewDefaultProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID: userID,
		ContentConsumption: ContentConsumption{
			ViewsByDimension:       map[LifeDimension]int{},
			ViewsByType:            map[ContentType]int{},
			PeakActivityHours:      append([]int(nil), DefaultPeakActivityHours...),
			PreferredContentLength: ContentLengthMedium,
		},
		Engagement: EngagementStats{
			TopEngagedCreators: []string{},
		},
		RoutePreferences: RoutePreferences{
			PreferredDistance: DefaultPreferredDistance,
			PreferredDuration: DefaultPreferredDuration,
			PreferredTags:     []string{},
			SafetyThreshold:   DefaultSafetyThreshold,
		},
		CreditBehavior: CreditBehavior{
			SpendByCategory: map[string]float64{},
		},
		PersonalizationScores: PersonalizationScores{
			Safety: DefaultSafetyScore,
		},
		MLFeatures: MLFeatures{
			ContentAffinityScores: map[LifeDimension]float64{},
			SimilarUsers:          []string{},
		},
	}
}

// IsTopEngagedCreator reports whether authorID is among the user's most engaged creators
func (p *UserProfile) IsTopEngagedCreator(authorID string) bool {
	if authorID == "" {
		return false
	}
	for _, id := range p.Engagement.TopEngagedCreators {
		if id == authorID {
			return true
		}
	}
	return false
}

// IsSimilarUser reports whether userID is in the similar-users list
func (p *UserProfile) IsSimilarUser(userID string) bool {
	if userID == "" {
		return false
	}
	for _, id := range p.MLFeatures.SimilarUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// ProfileSnapshot is a stored profile together with the segment it was classified into
type ProfileSnapshot struct {
	Profile   *UserProfile `json:"profile"`
	Segment   UserSegment  `json:"segment"`
	Version   int          `json:"version"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}
