package commands

import (
	"github.com/spf13/cobra"

	"github.com/fleetlab/twinstack/cmd/twinstack/handlers"
)

// Deploy returns the command that runs the full deployment pipeline.
//
// Optional flags:
//
//	--config, -c: Path to the deployment configuration YAML file
//	              (default: built-in defaults for the cloud2edge chart)
func Deploy() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Install or upgrade the stack and generate the .env artifact",
		Long: `Install or upgrade the IoT workload stack and generate configuration.

This command installs the packaged chart into the target namespace (or
upgrades it when already present), waits for every pod to become healthy
while restarting crash-looping ones, discovers the NodePort endpoints,
resolves the host's externally reachable address, and writes the .env
artifact consumed by the downstream telemetry services.

Examples:
  # Deploy with built-in defaults
  twinstack deploy

  # Deploy with a project configuration
  twinstack deploy -c twinstack.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	return cmd
}
