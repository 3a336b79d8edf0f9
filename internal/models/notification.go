package models

import "time"

// NotificationType categorizes notification templates
type NotificationType string

const (
	NotificationEngagement  NotificationType = "engagement"
	NotificationContent     NotificationType = "content"
	NotificationSocial      NotificationType = "social"
	NotificationAchievement NotificationType = "achievement"
	NotificationSafety      NotificationType = "safety"
	NotificationCredit      NotificationType = "credit"
)

// Priority is the sender-assigned urgency of a notification
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// NotificationTemplate is a candidate notification supplied per scoring call
type NotificationTemplate struct {
	ID        string           `json:"id" validate:"required,max=128"`
	Type      NotificationType `json:"type" validate:"required,notification_type"`
	Title     string           `json:"title" validate:"required,max=200"`
	Body      string           `json:"body" validate:"max=2000"`
	ActionURL string           `json:"actionUrl,omitempty" validate:"omitempty,max=2048"`
	Priority  Priority         `json:"priority" validate:"required,priority"`
}

// NotificationContext carries the recent send history for one user
type NotificationContext struct {
	LastActiveAt              *time.Time `json:"lastActive,omitempty"`
	LastNotificationSentAt    *time.Time `json:"lastNotificationSent,omitempty"`
	NotificationsSentToday    int        `json:"notificationsSentToday" validate:"min=0"`
	NotificationsClickedToday int        `json:"notificationsClickedToday" validate:"min=0"`
}

// ScoredNotification is a scored candidate with its send decision; it is never persisted
type ScoredNotification struct {
	NotificationTemplate
	RelevanceScore  float64    `json:"relevanceScore"`
	TimingScore     float64    `json:"timingScore"`
	FrequencyScore  float64    `json:"frequencyScore"`
	TotalScore      float64    `json:"totalScore"`
	ShouldSend      bool       `json:"shouldSend"`
	OptimalSendTime *time.Time `json:"optimalSendTime,omitempty"`
}
