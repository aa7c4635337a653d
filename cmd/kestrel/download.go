package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"kestrel-hq/kestrel/pkg/model"
)

var downloadFlags struct {
	model string
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Check that a local model is present",
	Long: `Check whether a local model file or directory exists.

Kestrel does not fetch model weights; place them on disk yourself and use this
command to confirm the path before pointing --model at it.

Examples:
  kestrel download --model ~/models/starcoder-1b.gguf`,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVar(&downloadFlags.model, "model", "", "local model id or path")
	_ = downloadCmd.MarkFlagRequired("model")
}

func runDownload(cmd *cobra.Command, _ []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	model.CheckLocalModel(downloadFlags.model, slog.Default())
	return nil
}
