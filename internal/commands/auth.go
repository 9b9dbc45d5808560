// file: internal/commands/auth.go
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dkoosis/freshbooks-mcp/internal/auth"
	"github.com/dkoosis/freshbooks-mcp/internal/logging"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored FreshBooks OAuth token",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether a usable token is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := authManager(cmd)
			if err != nil {
				return err
			}
			status, err := m.Status()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), status)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "Delete the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			store := auth.NewKeyringStore(cfg.Auth.KeyringService, logging.GetLogger("auth"))
			if err := store.Delete(); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Token deleted.")
			return err
		},
	})
	return cmd
}

func authManager(cmd *cobra.Command) (*auth.Manager, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := logging.GetLogger("auth")
	store := auth.NewKeyringStore(cfg.Auth.KeyringService, logger)
	return auth.NewManager(cfg.FreshBooks, store, logger), nil
}
