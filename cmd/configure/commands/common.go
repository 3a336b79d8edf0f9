package commands

import (
	"context"
	"fmt"

	"github.com/benvon/personalization/internal/config"
	"github.com/benvon/personalization/internal/database"
	"github.com/spf13/cobra"
)

// openDatabase loads configuration and connects to Postgres
func openDatabase() (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, db, nil
}

// NewDBCmd creates the db command
func NewDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the service's tables if they do not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()
			if err := db.Migrate(context.Background()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		},
	})
	return cmd
}
