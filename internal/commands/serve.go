// file: internal/commands/serve.go
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/dkoosis/freshbooks-mcp/internal/auth"
	"github.com/dkoosis/freshbooks-mcp/internal/freshbooks"
	"github.com/dkoosis/freshbooks-mcp/internal/logging"
	"github.com/dkoosis/freshbooks-mcp/internal/mcp"
	"github.com/dkoosis/freshbooks-mcp/internal/metrics"
)

func newServeCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Metrics.Addr, _ = cmd.Flags().GetString("metrics-addr")
			}
			if cfg.Server.Version == "" {
				cfg.Server.Version = version
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logging.SetupDefaultLogger(cfg.Logging.Level)
			logger := logging.GetLogger("serve")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tokens := auth.NewManager(cfg.FreshBooks, auth.NewKeyringStore(cfg.Auth.KeyringService, logger), logger)
			client := freshbooks.NewClient(cfg.FreshBooks, tokens, logger)
			collector := metrics.NewCollector(50)

			srv, err := mcp.NewServer(cfg, client, collector, logger)
			if err != nil {
				return errors.Wrap(err, "failed to create MCP server")
			}

			if cfg.Metrics.Addr != "" {
				go func() {
					if err := collector.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
						logger.Error("Metrics endpoint stopped.", "error", err)
					}
				}()
			}

			logger.Info("Starting FreshBooks MCP server.", "version", cfg.Server.Version, "production", cfg.Errors.Production)
			err = srv.Serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			if errors.Is(err, context.Canceled) {
				logger.Info("Shutdown signal received.")
				return nil
			}
			return err
		},
	}
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn or error")
	cmd.Flags().String("metrics-addr", "", "Listen address for the Prometheus /metrics endpoint (disabled when empty)")
	return cmd
}
