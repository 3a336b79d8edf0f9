package models

import "time"

// UserRecord holds the base user fields the profile builder reads
type UserRecord struct {
	ID             string    `json:"id"`
	Location       string    `json:"location,omitempty" validate:"max=200"`
	Industry       string    `json:"industry,omitempty" validate:"max=200"`
	CareerGoals    []string  `json:"careerGoals,omitempty" validate:"max=50,dive,max=200"`
	Interests      []string  `json:"interests,omitempty" validate:"max=100,dive,max=100"`
	FollowerCount  int       `json:"followerCount" validate:"min=0"`
	FollowingCount int       `json:"followingCount" validate:"min=0"`
	SimilarUsers   []string  `json:"similarUsers,omitempty" validate:"max=200"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Activity is the raw per-user activity the profile builder consumes.
// Every list may be empty.
type Activity struct {
	Posts        []PostRecord        `json:"posts" validate:"dive"`
	Routes       []RouteRecord       `json:"routes" validate:"dive"`
	Comments     []CommentRecord     `json:"comments" validate:"dive"`
	Votes        []VoteRecord        `json:"votes" validate:"dive"`
	Transactions []TransactionRecord `json:"transactions" validate:"dive"`
	Messages     []MessageRecord     `json:"messages" validate:"dive"`
}

// PostRecord is a post that appeared in the user's activity.
// Posts whose AuthorID equals the user are counted as created, the rest as consumed.
type PostRecord struct {
	ID            string        `json:"id" validate:"required"`
	AuthorID      string        `json:"authorId"`
	Type          ContentType   `json:"type,omitempty" validate:"omitempty,content_type"`
	LifeDimension LifeDimension `json:"lifeDimension,omitempty" validate:"omitempty,life_dimension"`
	Upvotes       int           `json:"upvotes" validate:"min=0"`
	Downvotes     int           `json:"downvotes" validate:"min=0"`
	TextLength    int           `json:"textLength" validate:"min=0"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// RouteRecord is a route the user created, completed or shared
type RouteRecord struct {
	ID           string    `json:"id" validate:"required"`
	CreatorID    string    `json:"creatorId"`
	Distance     float64   `json:"distance" validate:"min=0"` // meters
	Duration     float64   `json:"duration" validate:"min=0"` // seconds
	Tags         []string  `json:"tags,omitempty"`
	SafetyRating *float64  `json:"safetyRating,omitempty" validate:"omitempty,min=0,max=5"`
	Completed    bool      `json:"completed"`
	Shared       bool      `json:"shared"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CommentRecord is a comment the user wrote
type CommentRecord struct {
	ID             string    `json:"id" validate:"required"`
	PostID         string    `json:"postId"`
	TargetAuthorID string    `json:"targetAuthorId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// VoteRecord is a vote or verification the user cast
type VoteRecord struct {
	ID             string    `json:"id" validate:"required"`
	PostID         string    `json:"postId"`
	TargetAuthorID string    `json:"targetAuthorId"`
	Value          int       `json:"value" validate:"min=-1,max=1"`
	Verification   bool      `json:"verification"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TransactionKind separates earned from spent credits
type TransactionKind string

const (
	TransactionEarn  TransactionKind = "earn"
	TransactionSpend TransactionKind = "spend"
)

// TransactionRecord is a credit ledger entry
type TransactionRecord struct {
	ID        string          `json:"id" validate:"required"`
	Kind      TransactionKind `json:"kind" validate:"required,oneof=earn spend"`
	Amount    float64         `json:"amount" validate:"min=0"`
	Category  string          `json:"category,omitempty" validate:"max=100"`
	CreatedAt time.Time       `json:"createdAt"`
}

// MessageRecord is a direct message sent or received by the user
type MessageRecord struct {
	ID          string    `json:"id" validate:"required"`
	SenderID    string    `json:"senderId" validate:"required"`
	RecipientID string    `json:"recipientId" validate:"required"`
	CreatedAt   time.Time `json:"createdAt"`
}
