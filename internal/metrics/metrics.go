// Package metrics exposes Prometheus collectors for profile builds, ranking,
// notification decisions, the profile cache and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProfileBuildsTotal counts profile rebuilds by outcome and trigger.
	ProfileBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalization_profile_builds_total",
			Help: "Total number of profile rebuilds",
		},
		[]string{"outcome", "reason"},
	)

	// ProfileBuildDuration tracks activity load plus build time.
	ProfileBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "personalization_profile_build_duration_seconds",
			Help:    "Duration of profile rebuilds in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"reason"},
	)

	// SegmentAssignmentsTotal counts classifier results.
	SegmentAssignmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalization_segment_assignments_total",
			Help: "Total number of segment assignments",
		},
		[]string{"segment"},
	)

	// FeedRankDuration tracks rank plus rerank latency.
	FeedRankDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "personalization_feed_rank_duration_seconds",
			Help:    "Duration of feed ranking in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
		[]string{"segment"},
	)

	// FeedCandidates tracks how many candidates arrive per ranking request.
	FeedCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "personalization_feed_candidates",
			Help:    "Number of candidates per feed ranking request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// NotificationDecisionsTotal counts send decisions by type.
	NotificationDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalization_notification_decisions_total",
			Help: "Total number of notification send decisions",
		},
		[]string{"type", "decision"},
	)

	// ProfileCacheRequestsTotal counts profile cache lookups by result.
	ProfileCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalization_profile_cache_requests_total",
			Help: "Total number of profile cache lookups",
		},
		[]string{"result"},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "personalization_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	// RebuildJobsEnqueuedTotal counts jobs published by the scheduler and API.
	RebuildJobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalization_rebuild_jobs_enqueued_total",
			Help: "Total number of profile rebuild jobs enqueued",
		},
		[]string{"reason"},
	)

	// HTTPRequestsTotal counts requests by route template, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "personalization_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// HTTPRequestDuration tracks handler latency by route template and method.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "personalization_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)

// RecordProfileBuild records a rebuild outcome ("success" or "error")
func RecordProfileBuild(reason, outcome string, d time.Duration) {
	ProfileBuildsTotal.WithLabelValues(outcome, reason).Inc()
	ProfileBuildDuration.WithLabelValues(reason).Observe(d.Seconds())
}

// RecordSegment records a classifier result
func RecordSegment(segment string) {
	SegmentAssignmentsTotal.WithLabelValues(segment).Inc()
}

// RecordFeedRank records one feed ranking request
func RecordFeedRank(segment string, candidates int, d time.Duration) {
	FeedRankDuration.WithLabelValues(segment).Observe(d.Seconds())
	FeedCandidates.Observe(float64(candidates))
}

// RecordNotificationDecision records whether a scored notification should be sent
func RecordNotificationDecision(notificationType string, send bool) {
	decision := "hold"
	if send {
		decision = "send"
	}
	NotificationDecisionsTotal.WithLabelValues(notificationType, decision).Inc()
}

// RecordCacheResult records "hit", "miss", "error" or "bypass"
func RecordCacheResult(result string) {
	ProfileCacheRequestsTotal.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records one served request
func RecordHTTPRequest(route, method string, status int, d time.Duration) {
	HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
