package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/benvon/personalization/internal/database"
	"github.com/benvon/personalization/internal/models"
	"github.com/spf13/cobra"
)

// NewCorsCmd creates the cors configuration command with list and set subcommands.
func NewCorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Manage CORS settings",
		Long:  "List or update CORS allowed origins and options. The API reloads them every minute.",
	}
	cmd.AddCommand(newCorsListCmd())
	cmd.AddCommand(newCorsSetCmd())
	return cmd
}

func newCorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the stored CORS settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			c, err := database.NewSettingsRepository(db).GetCORS(context.Background())
			if err != nil {
				return fmt.Errorf("get cors settings: %w", err)
			}
			out := cmd.OutOrStdout()
			if c == nil {
				fmt.Fprintln(out, "No CORS settings stored; FRONTEND_URL applies. Use 'cors set' to add them.")
				return nil
			}
			fmt.Fprintln(out, "CORS settings:")
			fmt.Fprintf(out, "  Allowed origins: %s\n", strings.Join(c.AllowedOrigins, ", "))
			fmt.Fprintf(out, "  Allow credentials: %v\n", c.AllowCredentials)
			fmt.Fprintf(out, "  Max-Age: %d\n", c.MaxAge)
			return nil
		},
	}
}

func newCorsSetCmd() *cobra.Command {
	var origins string
	var allowCreds bool
	var maxAge int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store CORS settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseCORSSettings(origins, allowCreds, maxAge)
			if err != nil {
				return err
			}
			_, db, err := openDatabase()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := database.NewSettingsRepository(db).SetCORS(context.Background(), s); err != nil {
				return fmt.Errorf("set cors settings: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "CORS settings updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&origins, "origins", "", "Comma-separated allowed origins (required)")
	cmd.Flags().BoolVar(&allowCreds, "allow-credentials", true, "Allow credentials")
	cmd.Flags().IntVar(&maxAge, "max-age", 86400, "Access-Control-Max-Age (seconds)")
	return cmd
}

func parseCORSSettings(origins string, allowCreds bool, maxAge int) (*models.CORSSettings, error) {
	var list []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			list = append(list, o)
		}
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("--origins is required (comma-separated list)")
	}
	if maxAge < 0 {
		return nil, fmt.Errorf("--max-age must not be negative")
	}
	return &models.CORSSettings{AllowedOrigins: list, AllowCredentials: allowCreds, MaxAge: maxAge}, nil
}
