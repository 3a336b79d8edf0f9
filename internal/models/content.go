package models

import "time"

// ContentItem is a ranking candidate supplied per request; the engine never mutates it
type ContentItem struct {
	ID                string        `json:"id" validate:"required,max=128"`
	Type              ContentType   `json:"type" validate:"required,content_type"`
	AuthorID          string        `json:"authorId" validate:"max=128"`
	LifeDimension     LifeDimension `json:"lifeDimension,omitempty" validate:"omitempty,life_dimension"`
	Tags              []string      `json:"tags,omitempty" validate:"max=50"`
	CreatedAt         time.Time     `json:"createdAt" validate:"required"`
	Upvotes           int           `json:"upvotes" validate:"min=0"`
	Downvotes         int           `json:"downvotes" validate:"min=0"`
	Comments          int           `json:"comments" validate:"min=0"`
	Shares            int           `json:"shares" validate:"min=0"`
	Views             int           `json:"views" validate:"min=0"`
	AuthorTrustScore  float64       `json:"authorTrustScore" validate:"min=0,max=100"`
	VerificationCount *int          `json:"verificationCount,omitempty" validate:"omitempty,min=0"`
	IsVerified        *bool         `json:"isVerified,omitempty"`
	HasMedia          bool          `json:"hasMedia"`
	TextLength        int           `json:"textLength" validate:"min=0"`
	SafetyRating      *float64      `json:"safetyRating,omitempty" validate:"omitempty,min=0,max=5"`
}

// Interactions is the sum of votes, comments and shares on the item
func (c *ContentItem) Interactions() int {
	return c.Upvotes + c.Downvotes + c.Comments + c.Shares
}

// ScoreBreakdown holds the six named sub-scores, each in [0,1]
type ScoreBreakdown struct {
	Relevance  float64 `json:"relevance"`
	Quality    float64 `json:"quality"`
	Freshness  float64 `json:"freshness"`
	Diversity  float64 `json:"diversity"`
	Engagement float64 `json:"engagement"`
	Social     float64 `json:"social"`
}

// ScoredContent is a ranked candidate; it is never persisted
type ScoredContent struct {
	ContentItem
	Score          float64        `json:"score"`
	ScoreBreakdown ScoreBreakdown `json:"scoreBreakdown"`
}
