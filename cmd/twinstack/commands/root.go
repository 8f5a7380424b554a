// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing and flag binding. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the twinstack CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "twinstack",
		Short: "Deploy the IoT digital-twin stack and generate downstream configuration",
	}

	cmd.AddCommand(Deploy())
	cmd.AddCommand(Status())
	cmd.AddCommand(Version())

	return cmd
}
