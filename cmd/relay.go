package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/chartview/cli"
	"github.com/grovetools/chartview/internal/relay"
	"github.com/spf13/cobra"
)

// NewRelayCmd returns the command that runs the websocket broadcast relay.
func NewRelayCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run a websocket relay that rebroadcasts frames between clients",
		Long: `Accepts websocket clients and forwards every valid JSON text frame to all
other connected clients. Senders of invalid JSON receive an error reply.

Examples:
  chartview relay --listen localhost:5678`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Relay.Listen = listen
			}

			logger := cli.GetLogger(cmd, "relay")
			r := relay.New(relay.Config{PingInterval: cfg.Relay.PingInterval.D()}, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := r.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Relay shutdown error: %v", err)
				}
			}()

			return r.ListenAndServe(cfg.Relay.Listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Relay listen address (overrides relay.listen)")
	return cmd
}
