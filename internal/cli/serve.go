package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"finrouter/internal/api"
)

// serveCommand creates the "serve" command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the router over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, r, err := c.setup()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.ListenAddr
			}

			logger := slog.Default()
			return api.ListenAndServe(cmd.Context(), addr, api.New(r, logger).Handler(), logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: listen_addr from config)")

	return cmd
}
