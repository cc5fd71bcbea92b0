package main

import (
	"github.com/spf13/cobra"

	"scribe/internal/readiness"
	"scribe/internal/reporter"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the environment without running any jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			checker := readiness.New(cfg, nil)
			report := checker.Run(ctx.signalContext())
			reporter.New(cmd.OutOrStdout()).ReadinessReport(report)
			return report.Err()
		},
	}
}
