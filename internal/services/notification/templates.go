package notification

import (
	"fmt"
	"strings"

	"github.com/benvon/personalization/internal/models"
)

var greetings = map[models.UserSegment]string{
	models.SegmentNewUser:         "Welcome",
	models.SegmentCasualConsumer:  "Hi",
	models.SegmentActiveConsumer:  "Hey",
	models.SegmentCasualCreator:   "Hi",
	models.SegmentActiveCreator:   "Great work",
	models.SegmentPowerUser:       "Hey superstar",
	models.SegmentCommunityLeader: "Hello leader",
	models.SegmentSafetyAdvocate:  "Hi guardian",
}

const (
	defaultGreeting = "Hello"
	defaultUserName = "there"
)

// Greeting returns the salutation used for a segment
func Greeting(segment models.UserSegment) string {
	if g, ok := greetings[segment]; ok {
		return g
	}
	return defaultGreeting
}

// PersonalizeTemplate substitutes {userName}, {greeting} and any {key} from stats
// into the title and body. Unknown placeholders are left as they are.
func PersonalizeTemplate(tmpl models.NotificationTemplate, userName string, segment models.UserSegment, stats map[string]string) models.NotificationTemplate {
	if strings.TrimSpace(userName) == "" {
		userName = defaultUserName
	}
	pairs := []string{"{userName}", userName, "{greeting}", Greeting(segment)}
	for key, value := range stats {
		if key == "userName" || key == "greeting" {
			continue
		}
		pairs = append(pairs, "{"+key+"}", value)
	}
	r := strings.NewReplacer(pairs...)

	out := tmpl
	out.Title = r.Replace(tmpl.Title)
	out.Body = r.Replace(tmpl.Body)
	return out
}

// NewSafetyAlert builds an urgent safety notification
func NewSafetyAlert(id, area, message string) models.NotificationTemplate {
	return models.NotificationTemplate{
		ID:       id,
		Type:     models.NotificationSafety,
		Title:    fmt.Sprintf("Safety alert near %s", area),
		Body:     message,
		Priority: models.PriorityUrgent,
	}
}

// NewAchievementUnlocked builds an achievement notification
func NewAchievementUnlocked(id, achievement string) models.NotificationTemplate {
	return models.NotificationTemplate{
		ID:       id,
		Type:     models.NotificationAchievement,
		Title:    "{greeting} {userName}!",
		Body:     fmt.Sprintf("You unlocked %s.", achievement),
		Priority: models.PriorityMedium,
	}
}

// NewCreditEarned builds a credit notification
func NewCreditEarned(id string, amount float64, reason string) models.NotificationTemplate {
	return models.NotificationTemplate{
		ID:       id,
		Type:     models.NotificationCredit,
		Title:    fmt.Sprintf("You earned %.0f credits", amount),
		Body:     fmt.Sprintf("{greeting} {userName}, credits were added for %s.", reason),
		Priority: models.PriorityMedium,
	}
}

// NewEngagementNudge builds a low priority re-engagement notification
func NewEngagementNudge(id, message string) models.NotificationTemplate {
	return models.NotificationTemplate{
		ID:       id,
		Type:     models.NotificationEngagement,
		Title:    "{greeting} {userName}",
		Body:     message,
		Priority: models.PriorityLow,
	}
}

// NewSocialActivity builds a notification about another user's action
func NewSocialActivity(id, actorName, action string) models.NotificationTemplate {
	return models.NotificationTemplate{
		ID:       id,
		Type:     models.NotificationSocial,
		Title:    fmt.Sprintf("%s %s", actorName, action),
		Body:     "{greeting} {userName}, see what is happening in your circle.",
		Priority: models.PriorityMedium,
	}
}

// NewContentDigest builds a digest notification for new posts in a life dimension
func NewContentDigest(id string, count int, dimension models.LifeDimension) models.NotificationTemplate {
	noun := "posts"
	if count == 1 {
		noun = "post"
	}
	return models.NotificationTemplate{
		ID:       id,
		Type:     models.NotificationContent,
		Title:    fmt.Sprintf("%d new %s %s", count, dimension, noun),
		Body:     "{greeting} {userName}, here is what you missed.",
		Priority: models.PriorityLow,
	}
}
