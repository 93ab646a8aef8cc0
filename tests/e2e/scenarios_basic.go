package main

import (
	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/command"
	"github.com/grovetools/tend/pkg/harness"
)

// VersionScenario tests the 'version' command.
func VersionScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "chartview-basic-version",
		Steps: []harness.Step{
			harness.NewStep("Run 'chartview version'", func(ctx *harness.Context) error {
				bin, err := findChartviewBinary()
				if err != nil {
					return err
				}

				cmd := command.New(bin, "version")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "chartview version should exit successfully"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "Commit:", "Output should contain Commit"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "Platform:", "Output should contain Platform")
			}),
		},
	}
}

// HelpScenario checks that every subcommand is listed in the styled help.
func HelpScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "chartview-basic-help",
		Steps: []harness.Step{
			harness.NewStep("Run 'chartview --help'", func(ctx *harness.Context) error {
				bin, err := findChartviewBinary()
				if err != nil {
					return err
				}

				cmd := command.New(bin, "--help")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "help should exit successfully"); err != nil {
					return err
				}
				for _, name := range []string{"serve", "relay", "export", "config", "version"} {
					if err := assert.Contains(result.Stdout, name, "help should list "+name); err != nil {
						return err
					}
				}
				return nil
			}),
		},
	}
}
