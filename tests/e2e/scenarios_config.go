package main

import (
	"github.com/grovetools/tend/pkg/assert"
	"github.com/grovetools/tend/pkg/command"
	"github.com/grovetools/tend/pkg/harness"
)

// ConfigShowScenario verifies that file values and defaults are merged.
func ConfigShowScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "chartview-config-show",
		Steps: []harness.Step{
			harness.NewStep("Show merged configuration", func(ctx *harness.Context) error {
				bin, err := findChartviewBinary()
				if err != nil {
					return err
				}
				path, err := writeTempConfig("feed:\n  url: ws://producer:9000/\nviewer:\n  pan_step: 0.05\n")
				if err != nil {
					return err
				}

				cmd := command.New(bin, "config", "show", "--config", path)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "config show should exit successfully"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "url: ws://producer:9000/", "file value should be used"); err != nil {
					return err
				}
				if err := assert.Contains(result.Stdout, "pan_step: 0.05", "file value should be used"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "backoff_ceiling: 30s", "default should be applied")
			}),
		},
	}
}

// ConfigInvalidScenario verifies that a bad feed URL is rejected with a hint.
func ConfigInvalidScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "chartview-config-invalid",
		Steps: []harness.Step{
			harness.NewStep("Reject http feed URL", func(ctx *harness.Context) error {
				bin, err := findChartviewBinary()
				if err != nil {
					return err
				}
				path, err := writeTempConfig("feed:\n  url: http://producer/\n")
				if err != nil {
					return err
				}

				cmd := command.New(bin, "config", "show", "--config", path)
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(1, result.ExitCode, "invalid config should fail"); err != nil {
					return err
				}
				return assert.Contains(result.Stderr, "chartview config schema", "error should point at the schema")
			}),
		},
	}
}

// ConfigSchemaScenario verifies the generated JSON schema.
func ConfigSchemaScenario() *harness.Scenario {
	return &harness.Scenario{
		Name: "chartview-config-schema",
		Steps: []harness.Step{
			harness.NewStep("Print configuration schema", func(ctx *harness.Context) error {
				bin, err := findChartviewBinary()
				if err != nil {
					return err
				}

				cmd := command.New(bin, "config", "schema")
				result := cmd.Run()
				ctx.ShowCommandOutput(cmd.String(), result.Stdout, result.Stderr)

				if err := assert.Equal(0, result.ExitCode, "config schema should exit successfully"); err != nil {
					return err
				}
				return assert.Contains(result.Stdout, "chartview configuration", "schema title should be present")
			}),
		},
	}
}
