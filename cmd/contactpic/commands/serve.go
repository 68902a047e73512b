package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/contactpic/internal/logger"
	"github.com/marmos91/contactpic/internal/telemetry"
	"github.com/marmos91/contactpic/pkg/config"
	"github.com/marmos91/contactpic/pkg/directory"
	"github.com/marmos91/contactpic/pkg/metrics"
	"github.com/marmos91/contactpic/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve avatars over HTTP",
	Long: `Start the contactpic HTTP server.

Configuration is read from --config, the default location at
$XDG_CONFIG_HOME/contactpic/config.yaml when it exists, and
CONTACTPIC_* environment variables.

Examples:
  # Serve with the default configuration
  contactpic serve

  # Serve on another port with debug logs
  CONTACTPIC_SERVER_PORT=9090 CONTACTPIC_LOGGING_LEVEL=DEBUG contactpic serve

  # Fetch an avatar
  curl -o alice.png http://localhost:8080/api/v1/avatars/alice@example.com`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:         cfg.Telemetry.Enabled,
		ServiceVersion:  Version,
		Endpoint:        cfg.Telemetry.Endpoint,
		Insecure:        cfg.Telemetry.Insecure,
		SampleRate:      cfg.Telemetry.SampleRate,
		ShutdownTimeout: cfg.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "contactpic",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}

	// The registry must exist before the pipeline builds its sinks.
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("Metrics enabled", "path", cfg.Metrics.Path)
	}

	p, err := newPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Error("Avatar pipeline shutdown error", logger.Err(err))
		}
	}()

	if cfg.Directory.Type == directory.TypeStatic && cfg.Directory.Static.Watch {
		go p.watchDirectory(ctx)
	}

	srv := server.NewServer(serverConfig(cfg), p.loader, p.directory)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()

		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("Server error", logger.Err(err))
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Addr:            cfg.Server.Addr(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		RequestTimeout:  cfg.Server.WriteTimeout,
		MetricsPath:     cfg.Metrics.Path,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}
