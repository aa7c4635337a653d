package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"kestrel-hq/kestrel/pkg/api"
	"kestrel-hq/kestrel/pkg/cli"
	"kestrel-hq/kestrel/pkg/config"
	"kestrel-hq/kestrel/pkg/events/sink"
	"kestrel-hq/kestrel/pkg/model"
	"kestrel-hq/kestrel/pkg/providerfactory"
	"kestrel-hq/kestrel/pkg/server"
	"kestrel-hq/kestrel/pkg/services"
	"kestrel-hq/kestrel/pkg/telemetry/health"
	"kestrel-hq/kestrel/pkg/telemetry/metrics"
	"kestrel-hq/kestrel/pkg/telemetry/tracing"
)

var serveFlags struct {
	model       string
	host        string
	port        int
	device      string
	parallelism uint8
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the completion server",
	Long: `Start the completion server with the models from the config file.

--model overrides the completion model of the config file with a local model;
every other role comes from the file. Roles that are not configured are left
out: completion answers 501 and the chat route is not registered.

Examples:
  # Start with config.yaml in the working directory
  kestrel serve

  # Listen on a different port
  kestrel serve --port 9090

  # Use another config file with debug logging
  kestrel serve -c /etc/kestrel/config.yaml -v`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.model, "model", "", "local completion model id or path (overrides the config file)")
	serveCmd.Flags().StringVar(&serveFlags.host, "host", config.DefaultHost, "listen host")
	serveCmd.Flags().IntVar(&serveFlags.port, "port", config.DefaultPort, "listen port")
	serveCmd.Flags().StringVar(&serveFlags.device, "device", string(config.DefaultDevice), "inference device: cpu, cuda, rocm, metal, vulkan")
	serveCmd.Flags().Uint8Var(&serveFlags.parallelism, "parallelism", config.DefaultParallelism, "number of inference slots for --model")
}

func runServe(cmd *cobra.Command, _ []string) error {
	base, err := loadConfig()
	if err != nil {
		return err
	}

	device, err := config.ParseDevice(serveFlags.device)
	if err != nil {
		return cli.NewConfigError("--device", err)
	}

	logger := slog.Default()
	cfg := config.MergeArgs(base, config.ServeArgs{
		Model:       serveFlags.model,
		Device:      device,
		Parallelism: serveFlags.parallelism,
	}, logger)
	if cmd.Flags().Changed("host") {
		cfg.Server.Host = serveFlags.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = serveFlags.port
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("flags", err)
	}

	model.CheckLocalModels(cfg, logger)

	ready := cli.StartSpinner(isProduction() && term.IsTerminal(int(os.Stdout.Fd())), os.Stdout, logger)
	// Clears the spinner when startup fails before Done.
	defer ready.Stop()

	ctx, stop := cli.SignalContext(cmd.Context())
	defer stop()

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	eventSink, err := sink.Open(ctx, cfg.Events, collector)
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer eventSink.Close()

	manager := providerfactory.NewManager()
	defer manager.Close()

	rs, err := services.Assemble(ctx, cfg, services.Dependencies{
		Events:             eventSink.Logger,
		Manager:            manager,
		CompletionObserver: collector,
		Logger:             logger,
	})
	if err != nil {
		return cli.NewCommandError("serve", err)
	}
	defer rs.Close()

	checker := newHealthChecker(manager, eventSink, rs, collector)

	if rs.Index != nil && cfg.Index.WatchEnabled() {
		if err := rs.Index.Watch(ctx); err != nil {
			logger.Warn("index watcher not started", "dir", cfg.Index.Dir, "error", err)
		}
	}

	table := api.Build(rs, cfg,
		api.WithMetrics(collector),
		api.WithHealth(checker),
		api.WithVersion(versionInfo()),
		api.WithDevice(string(device)),
		api.WithTracer(tracer),
	)
	logger.Info("routes registered", "routes", table.Paths())

	ready.Done()
	ready.Wait()

	srv := server.NewServer(&cfg.Server, table.Handler())
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("serve", err)
	}
	return nil
}

// newHealthChecker registers the component checks reported by /v1/health.
// The bindings check also publishes per-binding health gauges.
func newHealthChecker(manager *providerfactory.Manager, eventSink *sink.Sink, rs *services.ResolvedServices, collector *metrics.Collector) *health.Checker {
	checker := health.New(health.DefaultCheckTimeout)

	checker.Register("bindings", func(ctx context.Context) error {
		for name, h := range manager.GetHealthSummary().Details {
			collector.UpdateBindingHealth(name, h.IsHealthy)
		}
		return manager.CheckHealth(ctx)
	})
	checker.Register("events", eventSink.Check)
	if rs.Index != nil {
		checker.Register("index", rs.Index.Check)
	}

	return checker
}
