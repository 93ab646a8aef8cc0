// Package cmd holds the chartview subcommands.
package cmd

import (
	"github.com/grovetools/chartview/cli"
	"github.com/grovetools/chartview/version"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the chartview command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := cli.NewStandardCommand(
		"chartview",
		"Live chart viewer for websocket data producers",
	)
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
	cli.SetVersionTemplate(rootCmd, version.GetInfo())

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewRelayCmd())
	rootCmd.AddCommand(NewExportCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(cli.NewVersionCommand("chartview"))

	cli.ApplyStyledHelpRecursive(rootCmd)
	return rootCmd
}
