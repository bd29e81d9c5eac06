package main

import (
	"fmt"
	"time"

	"github.com/ethpandaops/reportoor/pkg/reporter"
	"github.com/spf13/cobra"
)

var (
	recordTitle      string
	recordStatus     string
	recordError      string
	recordDurationMs int64
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record one test case against the current run",
	Long: `Append a test case to the local run log and report it to the tracking
service using the run id stored by a previous start invocation.`,
	RunE: runRecord,
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVar(&recordTitle, "title", "", "Test title")
	recordCmd.Flags().StringVar(&recordStatus, "status", "",
		"Test status (passed, failed, skipped)")
	recordCmd.Flags().StringVar(&recordError, "error", "",
		"Failure detail (used only with --status failed)")
	recordCmd.Flags().Int64Var(&recordDurationMs, "duration-ms", 0,
		"Test duration in milliseconds, as measured by the harness")

	_ = recordCmd.MarkFlagRequired("title")
	_ = recordCmd.MarkFlagRequired("status")
}

func runRecord(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	status := reporter.TestStatus(recordStatus)
	if !reporter.ValidTestStatus(status) {
		return fmt.Errorf(
			"invalid status %q (expected passed, failed or skipped)",
			recordStatus,
		)
	}

	if recordDurationMs < 0 {
		return fmt.Errorf("duration-ms must not be negative")
	}

	rep := reporter.New(log, &cfg.Reporter)

	rec := rep.RecordTestDuration(
		cmd.Context(),
		recordTitle,
		status,
		recordError,
		time.Duration(recordDurationMs)*time.Millisecond,
	)
	if rec == nil {
		log.WithField("test", recordTitle).
			Warn("Test case was not reported to the tracker")
	}

	return nil
}
