package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethpandaops/reportoor/pkg/tracker"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking API server",
	Long:  `Start the reportoor tracking API server that CI reporters post runs to.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.ValidateTracker(); err != nil {
		return fmt.Errorf("validating tracker config: %w", err)
	}

	// Set up context with signal handling.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	srv := tracker.NewServer(log, cfg.Tracker)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting tracker server: %w", err)
	}

	// Wait for shutdown signal.
	sig := <-sigCh
	log.WithField("signal", sig).Info("Shutting down tracker server")
	cancel()

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping tracker server: %w", err)
	}

	return nil
}
