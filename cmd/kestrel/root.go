package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"kestrel-hq/kestrel/pkg/cli"
	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Kestrel - self-hosted code completion server",
	Long: `Kestrel is a self-hosted code completion server.

It exposes OpenAI-style completion and chat endpoints backed by remote model
servers, augments completion prompts with snippets from an embedded code index,
and records editor interaction events.

Every model role is optional. A server without a completion model still
starts and answers /v1/completions with 501 Not Implemented.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the config file with environment overrides and installs
// the process logger it describes. A missing file yields the defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}

	if _, err := logging.Setup(logging.FromConfig(cfg.Telemetry.Logging, verbose)); err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err)
	}

	slog.Debug("configuration loaded", "path", cfgFile)
	return cfg, nil
}
