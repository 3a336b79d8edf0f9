package profile

import (
	"time"

	"github.com/benvon/personalization/internal/config"
	"github.com/benvon/personalization/internal/models"
)

const (
	communityActivityScale = 50.0
	maxSafetyRating        = 5.0
	daysPerMonth           = 30.0
)

// Builder turns raw per-user activity into a UserProfile.
// It holds configuration only and is safe for concurrent use.
type Builder struct {
	tuning config.ProfileTuning
	now    func() time.Time
}

// NewBuilder creates a profile builder
func NewBuilder(tuning config.ProfileTuning) *Builder {
	return &Builder{tuning: tuning, now: time.Now}
}

// WithClock returns a copy of the builder that reads the current time from now
func (b *Builder) WithClock(now func() time.Time) *Builder {
	cp := *b
	cp.now = now
	return &cp
}

// Build derives a profile from the user record and activity. It never fails:
// a nil record or empty activity lists produce the default values.
func (b *Builder) Build(userID string, user *models.UserRecord, activity *models.Activity) *models.UserProfile {
	if user == nil {
		user = &models.UserRecord{ID: userID}
	}
	if activity == nil {
		activity = &models.Activity{}
	}
	now := b.now()

	p := models.NewDefaultProfile(userID)
	p.LastUpdated = now
	p.Demographics = models.Demographics{
		Location:    user.Location,
		Industry:    user.Industry,
		CareerGoals: append([]string(nil), user.CareerGoals...),
		Interests:   append([]string(nil), user.Interests...),
	}

	b.fillConsumption(p, userID, activity)
	b.fillCreation(p, userID, activity)
	b.fillEngagement(p, userID, activity)
	b.fillRoutes(p, activity.Routes)
	fillCredit(p, activity.Transactions, monthsSinceSignup(user.CreatedAt, now))
	fillSocial(p, userID, user, activity.Messages)

	p.PersonalizationScores = scores(p, activity)
	p.MLFeatures.ContentAffinityScores = affinity(p.ContentConsumption.ViewsByDimension)
	if len(user.SimilarUsers) > 0 {
		p.MLFeatures.SimilarUsers = append([]string(nil), user.SimilarUsers...)
	}

	return p
}

func (b *Builder) fillConsumption(p *models.UserProfile, userID string, activity *models.Activity) {
	c := &p.ContentConsumption
	c.TotalViews = len(activity.Posts)

	totalText, textSamples := 0, 0
	for _, post := range activity.Posts {
		if post.LifeDimension.Valid() {
			c.ViewsByDimension[post.LifeDimension]++
		}
		contentType := post.Type
		if contentType == "" {
			contentType = models.ContentTypePost
		}
		c.ViewsByType[contentType]++
		if post.TextLength > 0 {
			totalText += post.TextLength
			textSamples++
		}
	}
	if textSamples > 0 {
		c.PreferredContentLength = b.contentLength(float64(totalText) / float64(textSamples))
	}

	stamps := activityTimestamps(userID, activity)
	c.AvgSessionDuration = averageSessionSeconds(stamps, b.tuning.SessionGap)
	if hours := peakHours(stamps, b.tuning.PeakHourCount); len(hours) > 0 {
		c.PeakActivityHours = hours
	}
}

func (b *Builder) contentLength(meanChars float64) models.ContentLength {
	switch {
	case meanChars < float64(b.tuning.ShortContentChars):
		return models.ContentLengthShort
	case meanChars < float64(b.tuning.LongContentChars):
		return models.ContentLengthMedium
	default:
		return models.ContentLengthLong
	}
}

func (b *Builder) fillCreation(p *models.UserProfile, userID string, activity *models.Activity) {
	c := &p.ContentCreation
	netTotal := 0
	for _, post := range activity.Posts {
		if post.AuthorID != userID {
			continue
		}
		c.PostsCreated++
		if post.Type == models.ContentTypeOpportunity {
			c.OpportunitiesCreated++
		}
		net := post.Upvotes - post.Downvotes
		netTotal += net
		if net > b.tuning.ViralNetUpvotes {
			c.ViralPosts++
		}
	}
	for _, route := range activity.Routes {
		if route.CreatorID == userID {
			c.RoutesCreated++
		}
	}
	c.AvgPostQuality = float64(netTotal) / float64(max(1, c.PostsCreated))
}

func (b *Builder) fillEngagement(p *models.UserProfile, userID string, activity *models.Activity) {
	e := &p.Engagement
	for _, vote := range activity.Votes {
		switch {
		case vote.Verification:
			e.VerificationsGiven++
		case vote.Value > 0:
			e.LikesGiven++
		}
	}
	e.CommentsGiven = len(activity.Comments)
	for _, route := range activity.Routes {
		if route.Shared {
			e.SharesGiven++
		}
	}
	interactions := e.LikesGiven + e.CommentsGiven + e.SharesGiven
	e.EngagementRate = clamp01(float64(interactions) / float64(max(1, p.ContentConsumption.TotalViews)))

	tally := newCounter[string]()
	for _, vote := range activity.Votes {
		if vote.TargetAuthorID != "" && vote.TargetAuthorID != userID {
			tally.add(vote.TargetAuthorID)
		}
	}
	for _, comment := range activity.Comments {
		if comment.TargetAuthorID != "" && comment.TargetAuthorID != userID {
			tally.add(comment.TargetAuthorID)
		}
	}
	e.TopEngagedCreators = tally.top(b.tuning.TopCreatorCount)
}

func (b *Builder) fillRoutes(p *models.UserProfile, routes []models.RouteRecord) {
	r := &p.RoutePreferences
	if len(routes) == 0 {
		return
	}

	distances := make([]float64, 0, len(routes))
	durations := make([]float64, 0, len(routes))
	tags := newCounter[string]()
	ratingSum, rated := 0.0, 0
	for _, route := range routes {
		distances = append(distances, route.Distance)
		durations = append(durations, route.Duration)
		for _, tag := range route.Tags {
			if tag != "" {
				tags.add(tag)
			}
		}
		if route.SafetyRating != nil {
			ratingSum += *route.SafetyRating
			rated++
		}
		if route.Completed {
			r.CompletedRoutes++
		}
		if route.Shared {
			r.SharedRoutes++
		}
	}

	r.PreferredDistance = median(distances)
	r.PreferredDuration = median(durations)
	r.PreferredTags = tags.top(b.tuning.TopTagCount)
	if rated > 0 {
		r.SafetyThreshold = ratingSum / float64(rated)
	}
}

func fillCredit(p *models.UserProfile, txs []models.TransactionRecord, months float64) {
	c := &p.CreditBehavior
	for _, tx := range txs {
		switch tx.Kind {
		case models.TransactionEarn:
			c.TotalEarned += tx.Amount
		case models.TransactionSpend:
			c.TotalSpent += tx.Amount
			category := tx.Category
			if category == "" {
				category = "other"
			}
			c.SpendByCategory[category] += tx.Amount
		}
	}
	c.AvgMonthlyEarnings = c.TotalEarned / months
	if c.TotalEarned > 0 {
		c.SavingsRate = min(1, (c.TotalEarned-c.TotalSpent)/c.TotalEarned)
	}
}

func fillSocial(p *models.UserProfile, userID string, user *models.UserRecord, messages []models.MessageRecord) {
	s := &p.SocialGraph
	s.FollowerCount = user.FollowerCount
	s.FollowingCount = user.FollowingCount

	var sent, received []models.MessageRecord
	for _, m := range messages {
		switch {
		case m.SenderID == userID:
			sent = append(sent, m)
		case m.RecipientID == userID:
			received = append(received, m)
		}
	}
	s.MessagesSent = len(sent)
	s.MessagesReceived = len(received)

	answered := 0
	for _, in := range received {
		for _, out := range sent {
			if out.RecipientID == in.SenderID && !out.CreatedAt.Before(in.CreatedAt) {
				answered++
				break
			}
		}
	}
	s.ResponseRate = clamp01(float64(answered) / float64(max(1, len(received))))
}

func scores(p *models.UserProfile, activity *models.Activity) models.PersonalizationScores {
	created := p.ContentCreation.PostsCreated + p.ContentCreation.RoutesCreated
	consumed := p.ContentConsumption.TotalViews - p.ContentCreation.PostsCreated
	interactions := len(activity.Votes) + len(activity.Comments)
	social := p.SocialGraph.MessagesSent + p.SocialGraph.MessagesReceived + len(activity.Comments)

	s := models.PersonalizationScores{
		Exploration: clamp01(float64(len(p.ContentConsumption.ViewsByDimension)) / float64(len(models.LifeDimensions))),
		Engagement:  clamp01(float64(interactions) / float64(max(1, len(activity.Posts)*2))),
		Creator:     clamp01(float64(created) / float64(max(1, created+consumed))),
		Community:   clamp01(float64(social) / communityActivityScale),
		Safety:      models.DefaultSafetyScore,
	}

	ratingSum, rated := 0.0, 0
	for _, route := range activity.Routes {
		if route.SafetyRating != nil {
			ratingSum += *route.SafetyRating
			rated++
		}
	}
	if rated > 0 {
		s.Safety = clamp01(ratingSum / float64(rated) / maxSafetyRating)
	}
	return s
}

func affinity(views map[models.LifeDimension]int) map[models.LifeDimension]float64 {
	out := make(map[models.LifeDimension]float64, len(views))
	total := 0
	for _, n := range views {
		total += n
	}
	if total == 0 {
		return out
	}
	for dim, n := range views {
		out[dim] = float64(n) / float64(total)
	}
	return out
}

func monthsSinceSignup(createdAt, now time.Time) float64 {
	if createdAt.IsZero() || !createdAt.Before(now) {
		return 1
	}
	months := float64(int(now.Sub(createdAt).Hours() / 24 / daysPerMonth))
	return max(1, months)
}
