package commands

import (
	"fmt"

	"github.com/benvon/personalization/internal/config"
	"github.com/spf13/cobra"
)

// NewTuningCmd creates the tuning command for inspecting scoring parameters
func NewTuningCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tuning",
		Short: "Inspect and validate scoring parameters",
		Long:  "Show the effective tuning (built-in defaults overlaid with a YAML file) or validate a file before deploying it.",
	}
	cmd.AddCommand(newTuningShowCmd())
	cmd.AddCommand(newTuningValidateCmd())
	return cmd
}

func newTuningShowCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective tuning as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := config.DefaultTuning()
			if file != "" {
				loaded, err := config.LoadTuning(file)
				if err != nil {
					return err
				}
				t = *loaded
			}
			data, err := t.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Tuning YAML file (defaults only when empty)")
	return cmd
}

func newTuningValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a tuning YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			if _, err := config.LoadTuning(file); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", file)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Tuning YAML file (required)")
	return cmd
}
