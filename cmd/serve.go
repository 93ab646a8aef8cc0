package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/chartview/cli"
	"github.com/grovetools/chartview/internal/engine"
	"github.com/grovetools/chartview/internal/render"
	"github.com/grovetools/chartview/internal/viewer"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd returns the command that runs the feed and the HTTP viewer.
func NewServeCmd() *cobra.Command {
	var (
		listen string
		url    string
		title  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to a data feed and serve the chart viewer",
		Long: `Connects to the configured websocket feed, reconnecting with capped
exponential backoff, and serves the chart page and JSON API over HTTP.

Examples:
  # Use chartview.yml from the working directory
  chartview serve

  # Override the feed and listen address
  chartview serve --url ws://127.0.0.1:5678/ --listen :8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if url != "" {
				cfg.Feed.URL = url
			}
			if listen != "" {
				cfg.Viewer.Listen = listen
			}
			if title != "" {
				cfg.Viewer.Title = title
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := cli.GetLogger(cmd, "viewer")
			eng := engine.New(engine.OptionsFromConfig(cfg), cli.GetLogger(cmd, "engine"))
			srv := viewer.New(eng, render.New(cfg.Viewer.Title), logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engineDone := make(chan struct{})
			go func() {
				defer close(engineDone)
				eng.Start(ctx)
			}()

			go func() {
				<-ctx.Done()
				logger.Info("Received stop signal")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Viewer shutdown error: %v", err)
				}
			}()

			logger.WithField("feed", cfg.Feed.URL).Info("Starting viewer")
			err = srv.ListenAndServe(cfg.Viewer.Listen)
			stop()
			<-engineDone
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Viewer listen address (overrides viewer.listen)")
	cmd.Flags().StringVar(&url, "url", "", "Feed websocket URL (overrides feed.url)")
	cmd.Flags().StringVar(&title, "title", "", "Chart page title (overrides viewer.title)")
	return cmd
}
