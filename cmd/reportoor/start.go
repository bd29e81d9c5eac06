package main

import (
	"github.com/ethpandaops/reportoor/pkg/reporter"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a tracked test run",
	Long: `Clear any previous run state, create a run on the tracking service,
and store the assigned run id for later record/finish invocations.`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rep := reporter.New(log, &cfg.Reporter)

	// Reporting failures never fail the CI step: the test run itself
	// takes priority over reporting.
	if info := rep.Start(cmd.Context()); info == nil {
		log.Warn("Run was not started on the tracker (disabled or unreachable)")
	}

	return nil
}
