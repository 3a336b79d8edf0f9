package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/benvon/personalization/internal/database"
	"github.com/benvon/personalization/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// DefaultRate applies when no rate limit is stored
const DefaultRate = "20-S"

// RateLimitReloader wraps ulule/limiter keyed by client IP and periodically reloads the rate
type RateLimitReloader struct {
	hotSwap
	store       limiter.Store
	repo        database.SettingsRepositoryInterface
	defaultRate string
	log         *zap.Logger
	interval    time.Duration
}

// NewRateLimitReloader creates a rate limiter backed by Redis, or by process memory when
// redisClient is nil.
func NewRateLimitReloader(redisClient *redis.Client, repo database.SettingsRepositoryInterface, defaultRate string, log *zap.Logger, reloadInterval time.Duration) (*RateLimitReloader, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultRate == "" {
		defaultRate = DefaultRate
	}
	if _, err := limiter.NewRateFromFormatted(defaultRate); err != nil {
		return nil, err
	}

	var store limiter.Store
	if redisClient != nil {
		s, err := redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "personalization_ratelimit"})
		if err != nil {
			return nil, err
		}
		store = s
	} else {
		store = memorystore.NewStore()
	}

	return &RateLimitReloader{
		store:       store,
		repo:        repo,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}, nil
}

// Middleware wraps next and performs the initial load
func (r *RateLimitReloader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		r.next = next
		r.load(context.Background())
		return r
	}
}

// Start runs the reload loop until ctx is cancelled. Call after Middleware() is applied.
func (r *RateLimitReloader) Start(ctx context.Context) {
	reloadEvery(ctx, r.interval, r.load)
}

func (r *RateLimitReloader) rate(ctx context.Context) limiter.Rate {
	rateStr := r.defaultRate
	if r.repo != nil {
		stored, err := r.repo.GetRateLimit(ctx)
		switch {
		case err != nil:
			r.log.Warn("failed_to_load_ratelimit_settings_using_default",
				zap.Error(err),
				zap.String("default_rate", r.defaultRate))
		case stored != nil && stored.Rate != "":
			rateStr = stored.Rate
		}
	}

	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		r.log.Error("failed_to_parse_rate_limit_using_default",
			zap.Error(err),
			zap.String("rate", rateStr),
			zap.String("default_rate", r.defaultRate))
		// validated in the constructor
		rate, _ = limiter.NewRateFromFormatted(r.defaultRate)
	}
	return rate
}

func (r *RateLimitReloader) load(ctx context.Context) {
	if r.next == nil {
		return
	}
	instance := limiter.New(r.store, r.rate(ctx))
	mw := stdlibmw.NewMiddleware(instance,
		stdlibmw.WithKeyGetter(request.ClientIP),
		stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, req *http.Request) {
			respondErrorJSON(w, req, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded", r.log)
		}),
		stdlibmw.WithErrorHandler(func(w http.ResponseWriter, req *http.Request, err error) {
			r.log.Error("rate_limiter_store_failed", zap.Error(err))
			respondErrorJSON(w, req, http.StatusInternalServerError, "Internal Server Error", "Rate limiter unavailable", r.log)
		}),
	)
	r.swap(mw.Handler(r.next))
}
