package profile

import (
	"sort"
	"time"

	"github.com/benvon/personalization/internal/models"
)

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// median averages the two middle values for even-length input
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// counter tallies keys and remembers the order they were first seen in
type counter[K comparable] struct {
	counts map[K]int
	order  []K
}

func newCounter[K comparable]() *counter[K] {
	return &counter[K]{counts: make(map[K]int)}
}

func (c *counter[K]) add(key K) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// top returns up to n keys by count descending; ties keep first-encounter order
func (c *counter[K]) top(n int) []K {
	keys := append([]K(nil), c.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return c.counts[keys[i]] > c.counts[keys[j]]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	if keys == nil {
		keys = []K{}
	}
	return keys
}

// activityTimestamps collects the times of actions the user took themselves
func activityTimestamps(userID string, activity *models.Activity) []time.Time {
	var stamps []time.Time
	push := func(t time.Time) {
		if !t.IsZero() {
			stamps = append(stamps, t)
		}
	}
	for _, post := range activity.Posts {
		if post.AuthorID == userID {
			push(post.CreatedAt)
		}
	}
	for _, route := range activity.Routes {
		push(route.CreatedAt)
	}
	for _, comment := range activity.Comments {
		push(comment.CreatedAt)
	}
	for _, vote := range activity.Votes {
		push(vote.CreatedAt)
	}
	for _, tx := range activity.Transactions {
		push(tx.CreatedAt)
	}
	for _, msg := range activity.Messages {
		if msg.SenderID == userID {
			push(msg.CreatedAt)
		}
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i].Before(stamps[j]) })
	return stamps
}

// averageSessionSeconds splits sorted timestamps into sessions wherever the gap exceeds maxGap
func averageSessionSeconds(sorted []time.Time, maxGap time.Duration) float64 {
	if len(sorted) == 0 {
		return 0
	}
	var total time.Duration
	sessions := 1
	start := sorted[0]
	prev := sorted[0]
	for _, t := range sorted[1:] {
		if t.Sub(prev) > maxGap {
			total += prev.Sub(start)
			sessions++
			start = t
		}
		prev = t
	}
	total += prev.Sub(start)
	return total.Seconds() / float64(sessions)
}

// peakHours returns the n busiest hours of day in ascending order
func peakHours(stamps []time.Time, n int) []int {
	if len(stamps) == 0 || n <= 0 {
		return nil
	}
	var byHour [24]int
	for _, t := range stamps {
		byHour[t.Hour()]++
	}
	hours := make([]int, 0, 24)
	for h, count := range byHour {
		if count > 0 {
			hours = append(hours, h)
		}
	}
	sort.SliceStable(hours, func(i, j int) bool {
		return byHour[hours[i]] > byHour[hours[j]]
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	sort.Ints(hours)
	return hours
}
