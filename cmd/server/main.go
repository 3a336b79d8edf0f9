package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/personalization/internal/cache"
	"github.com/benvon/personalization/internal/config"
	"github.com/benvon/personalization/internal/database"
	"github.com/benvon/personalization/internal/handlers"
	"github.com/benvon/personalization/internal/logger"
	"github.com/benvon/personalization/internal/metrics"
	"github.com/benvon/personalization/internal/middleware"
	"github.com/benvon/personalization/internal/queue"
	"github.com/benvon/personalization/internal/services/notification"
	"github.com/benvon/personalization/internal/services/profile"
	"github.com/benvon/personalization/internal/services/ranking"
	"github.com/benvon/personalization/internal/telemetry"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "personalization-api"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled := false
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(ctx, telemetry.Options{
				ServiceName:    serviceName,
				ServiceVersion: version,
				Endpoint:       cfg.OTELEndpoint,
				SampleRatio:    cfg.OTELSampleRatio,
			})
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracingEnabled = true
				zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	healthChecker := handlers.NewHealthChecker(version)

	// Every backing service is optional. Without a database profiles are
	// built per request and lookups return the default profile.
	var (
		profileRepo  database.ProfileRepositoryInterface
		settingsRepo database.SettingsRepositoryInterface
	)
	if cfg.DatabaseURL != "" {
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
		}
		defer func() {
			if err := db.Close(); err != nil {
				zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
			}
		}()
		if err := db.Migrate(ctx); err != nil {
			zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
		}
		zapLogger.Info("connected_to_database")

		profileRepo = database.NewProfileRepository(db)
		settingsRepo = database.NewSettingsRepository(db)
		healthChecker.Register("database", db.HealthCheck)
	} else {
		zapLogger.Warn("database_not_configured")
		healthChecker.Register("database", nil)
	}

	var (
		redisClient  *redis.Client
		profileCache cache.Cache
	)
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_redis")

		profileCache = cache.NewRedisCache(redisClient)
		healthChecker.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	} else {
		zapLogger.Warn("redis_not_configured_using_in_memory_rate_limits")
		healthChecker.Register("redis", nil)
	}

	var jobQueue queue.JobQueue
	if cfg.RabbitMQURL != "" {
		rabbit, err := queue.ConnectWithRetry(ctx, cfg.RabbitMQURL, 10, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
		}
		defer func() {
			if err := rabbit.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		zapLogger.Info("connected_to_rabbitmq")

		jobQueue = rabbit
		healthChecker.Register("rabbitmq", rabbit.HealthCheck)
	} else {
		zapLogger.Warn("rabbitmq_not_configured_async_rebuilds_disabled")
		healthChecker.Register("rabbitmq", nil)
	}

	store := cache.NewProfileStore(profileCache, profileRepo, cache.StoreOptions{}, zapLogger)
	tuning := cfg.Tuning

	profileHandler := handlers.NewProfileHandler(store, profile.NewBuilder(tuning.Profile), jobQueue, zapLogger)
	feedHandler := handlers.NewFeedHandler(
		store,
		ranking.NewRanker(tuning.Ranking),
		ranking.NewDiversityReranker(tuning.Ranking),
		zapLogger,
	)
	notificationHandler := handlers.NewNotificationHandler(store, notification.NewScorer(tuning.Notification), zapLogger)

	corsReloader := middleware.NewCORSReloader(settingsRepo, cfg.AllowedOrigins(), zapLogger, time.Minute)
	rateLimitReloader, err := middleware.NewRateLimitReloader(redisClient, settingsRepo, middleware.DefaultRate, zapLogger, time.Minute)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// gorilla/mux runs middleware in registration order: the first one registered is outermost
	r := mux.NewRouter()
	if tracingEnabled {
		r.Use(otelmux.Middleware(serviceName))
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(corsReloader.Middleware())
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))

	// Operational endpoints are not rate limited
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", healthChecker.Version).Methods(http.MethodGet)
	handlers.NewOpenAPIHandler().RegisterRoutes(r)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(rateLimitReloader.Middleware())
	profileHandler.RegisterRoutes(api)
	feedHandler.RegisterRoutes(api)
	notificationHandler.RegisterRoutes(api)

	// Preflight requests are answered by the CORS middleware before reaching this
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      middleware.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go corsReloader.Start(ctx)
	go rateLimitReloader.Start(ctx)

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("server_failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
