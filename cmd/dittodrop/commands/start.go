package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/dittodrop/internal/logger"
	"github.com/marmos91/dittodrop/internal/telemetry"
	"github.com/marmos91/dittodrop/pkg/api"
	"github.com/marmos91/dittodrop/pkg/config"
	"github.com/marmos91/dittodrop/pkg/credentials"
	"github.com/marmos91/dittodrop/pkg/metrics"
	promMetrics "github.com/marmos91/dittodrop/pkg/metrics/prometheus"
	"github.com/marmos91/dittodrop/pkg/server"
	"github.com/marmos91/dittodrop/pkg/session"
	"github.com/marmos91/dittodrop/pkg/storage"
	"github.com/spf13/cobra"
)

var (
	startPort    int
	startWorkers int
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the DittoDrop server",
	Long: `Start the DittoDrop server in the foreground.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/dittodrop/config.yaml. Without a
config file the built-in defaults are used.

Examples:
  # Start with defaults
  dittodrop start

  # Start with custom config file
  dittodrop start --config /etc/dittodrop/config.yaml

  # Override the listening port
  dittodrop start --port 6000

  # Start with environment variable overrides
  DITTODROP_LOGGING_LEVEL=DEBUG dittodrop start`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().IntVarP(&startPort, "port", "p", 0, "TCP port to listen on (overrides server.port)")
	startCmd.Flags().IntVarP(&startWorkers, "workers", "w", 0, "Maximum concurrent sessions (overrides server.max_workers)")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if startPort != 0 {
		cfg.Server.Port = startPort
	}
	if startWorkers != 0 {
		cfg.Server.MaxWorkers = startWorkers
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dittodrop",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	telemetryShutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.KeyError, err)
		}
	}()

	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "dittodrop",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	profilingShutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.KeyError, err)
		}
	}()

	fmt.Println("DittoDrop - Private file drop server")
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	store, err := storage.New(storage.Config{
		Root:        cfg.Storage.Root,
		MaxFileSize: int64(cfg.Storage.MaxFileSize),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage ready", "root", store.Root(), "max_file_size", cfg.Storage.MaxFileSize)

	creds := credentials.NewFileStore(cfg.Auth.CredentialsFile)
	if _, err := os.Stat(creds.Path()); errors.Is(err, os.ErrNotExist) {
		logger.Warn("Credential file not found, every login will fail",
			logger.KeyPath, creds.Path(),
			"hint", "add users with 'dittodrop user add'")
	}

	tracker := metrics.NewPerformanceTracker()
	env := session.Env{
		Credentials: creds,
		Storage:     store,
		Tracker:     tracker,
	}
	if cfg.Metrics.Enabled {
		logger.Info("Metrics enabled", logger.KeyPort, cfg.Metrics.Port)
		metrics.InitRegistry()
		env.Metrics = promMetrics.NewTransferMetrics()
		promMetrics.RegisterTracker(tracker)
	}

	srv := server.New(server.Config{
		BindAddress:      cfg.Server.BindAddress,
		Port:             cfg.Server.Port,
		MaxWorkers:       cfg.Server.MaxWorkers,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
		StatsLogInterval: cfg.Metrics.LogInterval,
		Session: session.Config{
			MaxAuthAttempts: cfg.Auth.MaxAttempts,
			IdleTimeout:     cfg.Server.IdleTimeout,
		},
	}, env)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	statusDone := make(chan error, 1)
	if cfg.Metrics.Enabled {
		statusSrv := api.NewServer(api.Config{
			BindAddress: cfg.Server.BindAddress,
			Port:        cfg.Metrics.Port,
		}, api.Deps{
			Stats:       tracker,
			StorageRoot: store.Root(),
			Ready: func() error {
				if srv.Addr() == "" {
					return errors.New("file server is not listening")
				}
				return nil
			},
			Registry: metrics.GetRegistry(),
		})
		go func() {
			statusDone <- statusSrv.Start(ctx)
		}()
	} else {
		logger.Info("Metrics collection disabled")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown")
		cancel()
		if err := <-serverDone; err != nil {
			logger.Error("Server shutdown error", logger.KeyError, err)
			return err
		}
		logger.Info("Server stopped gracefully")

	case err := <-statusDone:
		cancel()
		<-serverDone
		if err != nil {
			logger.Error("Status server error", logger.KeyError, err)
			return err
		}

	case err := <-serverDone:
		cancel()
		if err != nil {
			logger.Error("Server error", logger.KeyError, err)
			return err
		}
		logger.Info("Server stopped")
	}

	return nil
}
