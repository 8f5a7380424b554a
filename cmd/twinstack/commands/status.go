package commands

import (
	"github.com/spf13/cobra"

	"github.com/fleetlab/twinstack/cmd/twinstack/handlers"
)

// Status returns the command that reports the current deployment state
// without mutating anything.
func Status() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show release, unit, and endpoint status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	return cmd
}
