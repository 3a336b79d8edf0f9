package main

import (
	"fmt"
	"os"

	"github.com/benvon/personalization/cmd/configure/commands"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "personalization-configure",
		Short:         "Operator tool for the personalization service",
		Long:          "Manage runtime settings, tuning files and stored profiles",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewCorsCmd())
	rootCmd.AddCommand(commands.NewRatelimitCmd())
	rootCmd.AddCommand(commands.NewSettingsCmd())
	rootCmd.AddCommand(commands.NewTuningCmd())
	rootCmd.AddCommand(commands.NewProfileCmd())
	rootCmd.AddCommand(commands.NewDBCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
