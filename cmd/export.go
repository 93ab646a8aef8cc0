package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/grovetools/chartview/cli"
	"github.com/grovetools/chartview/errors"
	"github.com/grovetools/chartview/internal/engine"
	"github.com/grovetools/chartview/pkg/chart"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewExportCmd returns the command that writes the first received dataset as CSV.
func NewExportCmd() *cobra.Command {
	var (
		url     string
		output  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Wait for the first dataset from the feed and write it as CSV",
		Long: `Connects to the feed, waits for the first valid dataset, and writes it in
the viewer's export format.

Examples:
  chartview export --output exported-data.csv
  chartview export --url ws://127.0.0.1:5678/ --timeout 10s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if url != "" {
				cfg.Feed.URL = url
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			csv, err := exportFirstDataset(ctx, engine.OptionsFromConfig(cfg), cli.GetLogger(cmd, "export"))
			if err != nil {
				return err
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				out = f
			}
			_, err = io.WriteString(out, csv)
			return err
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Feed websocket URL (overrides feed.url)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "How long to wait for data")
	return cmd
}

// exportFirstDataset runs an engine until its store accepts a dataset and
// returns the CSV export of it.
func exportFirstDataset(ctx context.Context, opts engine.Options, logger *logrus.Entry) (string, error) {
	eng := engine.New(opts, logger)
	store := eng.Store()
	updates := store.Subscribe()
	defer store.Unsubscribe(updates)

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Start(runCtx)
	}()
	defer func() {
		stop()
		<-done
	}()

	for {
		select {
		case u := <-updates:
			if u.Type == chart.UpdateDataset {
				return store.ExportRows(), nil
			}
		case <-ctx.Done():
			return "", errors.Wrap(ctx.Err(), errors.ErrCodeTransport, "no dataset received").
				WithDetail("url", opts.Feed.URL)
		}
	}
}
