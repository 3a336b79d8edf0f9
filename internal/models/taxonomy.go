package models

// LifeDimension is a content category used to bucket posts and measure topical affinity
type LifeDimension string

const (
	DimensionProfessional LifeDimension = "professional"
	DimensionSocial       LifeDimension = "social"
	DimensionDaily        LifeDimension = "daily"
	DimensionTravel       LifeDimension = "travel"
	DimensionFinancial    LifeDimension = "financial"
	DimensionWellness     LifeDimension = "wellness"
	DimensionSafety       LifeDimension = "safety"
)

// LifeDimensions lists every dimension in canonical order
var LifeDimensions = []LifeDimension{
	DimensionProfessional,
	DimensionSocial,
	DimensionDaily,
	DimensionTravel,
	DimensionFinancial,
	DimensionWellness,
	DimensionSafety,
}

// Valid reports whether d is one of the known dimensions
func (d LifeDimension) Valid() bool {
	for _, known := range LifeDimensions {
		if d == known {
			return true
		}
	}
	return false
}

// ContentType identifies the kind of a content candidate
type ContentType string

const (
	ContentTypePost        ContentType = "post"
	ContentTypeRoute       ContentType = "route"
	ContentTypeOpportunity ContentType = "opportunity"
	ContentTypePoll        ContentType = "poll"
	ContentTypeReel        ContentType = "reel"
	ContentTypeAIChat      ContentType = "ai_chat"
)

// ContentTypes lists every content type in canonical order
var ContentTypes = []ContentType{
	ContentTypePost,
	ContentTypeRoute,
	ContentTypeOpportunity,
	ContentTypePoll,
	ContentTypeReel,
	ContentTypeAIChat,
}

// Valid reports whether t is one of the known content types
func (t ContentType) Valid() bool {
	for _, known := range ContentTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ContentLength is the inferred preferred length of content for a user
type ContentLength string

const (
	ContentLengthShort  ContentLength = "short"
	ContentLengthMedium ContentLength = "medium"
	ContentLengthLong   ContentLength = "long"
)

// UserSegment is one of eight mutually exclusive behavioral classes
type UserSegment string

const (
	SegmentNewUser         UserSegment = "new_user"
	SegmentCasualConsumer  UserSegment = "casual_consumer"
	SegmentActiveConsumer  UserSegment = "active_consumer"
	SegmentCasualCreator   UserSegment = "casual_creator"
	SegmentActiveCreator   UserSegment = "active_creator"
	SegmentPowerUser       UserSegment = "power_user"
	SegmentCommunityLeader UserSegment = "community_leader"
	SegmentSafetyAdvocate  UserSegment = "safety_advocate"
)

// UserSegments lists every segment in canonical order
var UserSegments = []UserSegment{
	SegmentNewUser,
	SegmentCasualConsumer,
	SegmentActiveConsumer,
	SegmentCasualCreator,
	SegmentActiveCreator,
	SegmentPowerUser,
	SegmentCommunityLeader,
	SegmentSafetyAdvocate,
}

// Valid reports whether s is one of the known segments
func (s UserSegment) Valid() bool {
	for _, known := range UserSegments {
		if s == known {
			return true
		}
	}
	return false
}
