package main

import (
	"github.com/ethpandaops/reportoor/pkg/reporter"
	"github.com/spf13/cobra"
)

var finishCmd = &cobra.Command{
	Use:   "finish",
	Short: "Finalize the current test run",
	Long: `Read back the local run log, compute aggregate counts, and finalize
the run on the tracking service with its overall status.`,
	RunE: runFinish,
}

func init() {
	rootCmd.AddCommand(finishCmd)
}

func runFinish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rep := reporter.New(log, &cfg.Reporter)

	if summary := rep.Finish(cmd.Context()); summary == nil {
		log.Warn("Run was not finalized on the tracker")
	}

	return nil
}
