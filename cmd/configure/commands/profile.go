package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/benvon/personalization/internal/cache"
	"github.com/benvon/personalization/internal/config"
	"github.com/benvon/personalization/internal/database"
	"github.com/benvon/personalization/internal/logger"
	"github.com/benvon/personalization/internal/queue"
	"github.com/benvon/personalization/internal/services/profile"
	"github.com/benvon/personalization/internal/workers"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewProfileCmd creates the profile command
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Rebuild and inspect stored user profiles",
	}
	cmd.AddCommand(newProfileRebuildCmd())
	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileSegmentsCmd())
	return cmd
}

func newProfileRebuildCmd() *cobra.Command {
	var (
		users       []string
		all         bool
		since       time.Duration
		concurrency int
		enqueue     bool
		debug       bool
	)
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild profiles from the activity store",
		Long: "Rebuild one or more users' profiles. With --all every user active within --since is rebuilt. " +
			"With --enqueue jobs are published for the worker instead of running here.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(users) > 0) {
				return fmt.Errorf("pass either --user or --all")
			}
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1")
			}

			log, err := logger.NewCLILogger(debug)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync(log) }()

			cfg, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			activityRepo := database.NewActivityRepository(db)
			if all {
				users, err = activityRepo.ListActiveUsers(ctx, time.Now().Add(-since))
				if err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users to rebuild")
				return nil
			}

			if enqueue {
				return enqueueRebuilds(ctx, cfg, users, out, log)
			}

			store, closeStore, err := cliProfileStore(ctx, cfg, db, log)
			if err != nil {
				return err
			}
			defer closeStore()

			rebuilder := workers.NewProfileRebuilder(activityRepo, store, profile.NewBuilder(cfg.Tuning.Profile), nil, log)
			ok, failed := rebuildUsers(ctx, users, concurrency, func(ctx context.Context, userID string) error {
				_, err := rebuilder.Rebuild(ctx, userID, queue.ReasonManual)
				return err
			}, log)
			fmt.Fprintf(out, "Rebuilt %d profiles, %d failed\n", ok, failed)
			if failed > 0 {
				return fmt.Errorf("%d profile rebuilds failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&users, "user", nil, "User id to rebuild (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Rebuild every recently active user")
	cmd.Flags().DurationVar(&since, "since", 7*24*time.Hour, "Activity window for --all")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "Parallel rebuilds")
	cmd.Flags().BoolVar(&enqueue, "enqueue", false, "Publish rebuild jobs to RabbitMQ instead of rebuilding here")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

// rebuildUsers runs fn for every user with at most concurrency in flight.
// Individual failures are logged and counted; they do not stop the batch.
func rebuildUsers(ctx context.Context, users []string, concurrency int, fn func(context.Context, string) error, log *zap.Logger) (ok, failed int) {
	var okCount, failedCount atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, userID := range users {
		g.Go(func() error {
			if err := fn(gctx, userID); err != nil {
				failedCount.Add(1)
				log.Warn("profile_rebuild_failed",
					zap.String("user_id", logger.SanitizeUserID(userID)),
					zap.Error(err),
				)
				return nil
			}
			okCount.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(okCount.Load()), int(failedCount.Load())
}

func enqueueRebuilds(ctx context.Context, cfg *config.Config, users []string, out io.Writer, log *zap.Logger) error {
	if err := cfg.RequireQueue(); err != nil {
		return err
	}
	q, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL, log)
	if err != nil {
		return err
	}
	defer func() { _ = q.Close() }()

	enqueued := 0
	for _, userID := range users {
		if err := q.Enqueue(ctx, queue.NewProfileRebuildJob(userID, queue.ReasonManual)); err != nil {
			return fmt.Errorf("enqueued %d of %d jobs: %w", enqueued, len(users), err)
		}
		enqueued++
	}
	fmt.Fprintf(out, "Enqueued %d rebuild jobs\n", enqueued)
	return nil
}

// cliProfileStore writes through Redis when configured so the API sees rebuilt profiles at once
func cliProfileStore(ctx context.Context, cfg *config.Config, db *database.DB, log *zap.Logger) (*cache.ProfileStore, func(), error) {
	repo := database.NewProfileRepository(db)
	if cfg.RedisURL == "" {
		return cache.NewProfileStore(nil, repo, cache.StoreOptions{}, log), func() {}, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	store := cache.NewProfileStore(cache.NewRedisCache(client), repo, cache.StoreOptions{}, log)
	return store, func() { _ = client.Close() }, nil
}

func newProfileShowCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a user's stored profile as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID = strings.TrimSpace(userID)
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			snap, err := database.NewProfileRepository(db).GetByUserID(context.Background(), userID)
			if errors.Is(err, database.ErrProfileNotFound) {
				return fmt.Errorf("no stored profile for user %q", userID)
			}
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id (required)")
	return cmd
}

func newProfileSegmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "segments",
		Short: "Count stored profiles per segment",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			counts, err := database.NewProfileRepository(db).SegmentCounts(context.Background())
			if err != nil {
				return err
			}
			writeSegmentCounts(cmd.OutOrStdout(), counts)
			return nil
		},
	}
}

func writeSegmentCounts[K ~string](out io.Writer, counts map[K]int) {
	keys := make([]string, 0, len(counts))
	total := 0
	for k, n := range counts {
		keys = append(keys, string(k))
		total += n
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "%-18s %d\n", k, counts[K(k)])
	}
	fmt.Fprintf(out, "%-18s %d\n", "total", total)
}
