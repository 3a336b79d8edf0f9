package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/benvon/personalization/internal/database"
	"github.com/benvon/personalization/internal/middleware"
	"github.com/benvon/personalization/internal/models"
	"github.com/spf13/cobra"
	"github.com/ulule/limiter/v3"
)

// NewRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func NewRatelimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage the API rate limit",
		Long:  "List or update the per-client rate limit (e.g. 5-S, 100-M). The API reloads it every minute.",
	}
	cmd.AddCommand(newRatelimitListCmd())
	cmd.AddCommand(newRatelimitSetCmd())
	return cmd
}

func newRatelimitListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the stored rate limit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			c, err := database.NewSettingsRepository(db).GetRateLimit(context.Background())
			if err != nil {
				return fmt.Errorf("get rate limit: %w", err)
			}
			out := cmd.OutOrStdout()
			if c == nil {
				fmt.Fprintf(out, "No rate limit stored; the default %s applies. Use 'ratelimit set' to add one.\n", middleware.DefaultRate)
				return nil
			}
			fmt.Fprintf(out, "Rate limit: %s\n", c.Rate)
			return nil
		},
	}
}

func newRatelimitSetCmd() *cobra.Command {
	var rate string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the rate limit",
		Long:  "Update the rate limit (e.g. 5-S, 100-M, 1000-H).",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate, err := parseRate(rate)
			if err != nil {
				return err
			}
			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := database.NewSettingsRepository(db).SetRateLimit(context.Background(), &models.RateLimitSettings{Rate: rate}); err != nil {
				return fmt.Errorf("set rate limit: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Rate limit updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	return cmd
}

// parseRate trims rate and checks it against the limiter format
func parseRate(rate string) (string, error) {
	rate = strings.TrimSpace(rate)
	if rate == "" {
		return "", fmt.Errorf("--rate is required (e.g. 5-S, 100-M)")
	}
	if _, err := limiter.NewRateFromFormatted(rate); err != nil {
		return "", fmt.Errorf("invalid rate %q: %w", rate, err)
	}
	return rate, nil
}

// NewSettingsCmd creates the settings command that dumps every stored setting
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect stored runtime settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every stored setting as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			settings, err := database.NewSettingsRepository(db).List(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(settings) == 0 {
				fmt.Fprintln(out, "No settings stored")
				return nil
			}
			keys := make([]string, 0, len(settings))
			for k := range settings {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s: %s\n", k, settings[k])
			}
			return nil
		},
	})
	return cmd
}
