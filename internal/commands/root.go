// Package commands implements the freshbooks-mcp command line.
// file: internal/commands/root.go
package commands

import (
	"github.com/spf13/cobra"

	"github.com/dkoosis/freshbooks-mcp/internal/config"
	"github.com/dkoosis/freshbooks-mcp/internal/logging"
)

// Execute runs the CLI.
func Execute(version string) error {
	root := NewRootCmd(version)
	err := root.Execute()
	if err != nil {
		logging.GetLogger("main").Error("Command failed.", "error", err)
	}
	return err
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "freshbooks-mcp",
		Short:         "MCP server for FreshBooks time tracking and invoices",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	root.PersistentFlags().String("config", "", "Path to the YAML configuration file")

	root.AddCommand(newServeCmd(version))
	root.AddCommand(newErrorsCmd())
	root.AddCommand(newAuthCmd())
	return root
}

// loadConfig reads --config, falling back to defaults and environment overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}
