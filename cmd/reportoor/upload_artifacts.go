package main

import (
	"fmt"
	"os"

	"github.com/ethpandaops/reportoor/pkg/upload"
	"github.com/spf13/cobra"
)

var uploadArtifactDir string

var uploadArtifactsCmd = &cobra.Command{
	Use:   "upload-artifacts",
	Short: "Upload run artifacts to S3-compatible storage",
	Long:  `Upload the contents of an artifact directory (logs, screenshots, reports) to the configured S3 bucket.`,
	RunE:  runUploadArtifacts,
}

func init() {
	rootCmd.AddCommand(uploadArtifactsCmd)

	uploadArtifactsCmd.Flags().StringVar(&uploadArtifactDir, "artifact-dir", "", "Directory containing artifacts to upload (required)")
	_ = uploadArtifactsCmd.MarkFlagRequired("artifact-dir")
}

func runUploadArtifacts(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if cfg.Artifacts == nil || cfg.Artifacts.S3 == nil || !cfg.Artifacts.S3.Enabled {
		return fmt.Errorf("artifact upload is not enabled in config")
	}

	info, err := os.Stat(uploadArtifactDir)
	if err != nil {
		return fmt.Errorf("checking artifact directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("artifact path %s is not a directory", uploadArtifactDir)
	}

	uploader, err := upload.NewS3Uploader(log, cfg.Artifacts.S3)
	if err != nil {
		return fmt.Errorf("creating S3 uploader: %w", err)
	}

	ctx := cmd.Context()

	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("S3 preflight check failed: %w", err)
	}

	if err := uploader.Upload(ctx, uploadArtifactDir); err != nil {
		return fmt.Errorf("uploading artifacts: %w", err)
	}

	log.WithField("dir", uploadArtifactDir).Info("Artifact upload complete")

	return nil
}
