package commands

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/p2pci/internal/logger"
	"github.com/marmos91/p2pci/internal/telemetry"
	"github.com/marmos91/p2pci/pkg/adapter/p2pci"
	"github.com/marmos91/p2pci/pkg/catalog"
	"github.com/marmos91/p2pci/pkg/config"
	"github.com/marmos91/p2pci/pkg/controlplane/api"
	"github.com/marmos91/p2pci/pkg/controlplane/runtime"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the index server",
	Long: `Start the P2P-CI index server.

By default the server runs in the background (daemon mode). Use --foreground
to run it in the foreground, for debugging or under a process supervisor.

Examples:
  # Start in background (default)
  p2pci start

  # Start in foreground
  p2pci start --foreground

  # Start with a custom config file
  p2pci start --config /etc/p2pci/config.yaml

  # Override the listening port
  P2PCI_ADAPTERS_P2PCI_PORT=7735 p2pci start -f`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/p2pci/p2pci.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/p2pci/p2pci.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "p2pci",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// ctx is cancelled by then; flushing needs its own context.
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "p2pci",
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

	logger.Info("P2P-CI index server", "version", Version, "commit", Commit)
	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()),
		"level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if cfg.Telemetry.Profiling.Enabled {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// Metrics first: the adapter picks up the recorder at construction.
	metricsServer, indexMetrics := config.InitializeMetrics(cfg)

	rt := runtime.New(catalog.New(), cfg.ShutdownTimeout)

	if metricsServer != nil {
		rt.SetMetricsServer(metricsServer)
	}

	if cfg.Adapters.P2PCI.Enabled {
		opts := []p2pci.Option{p2pci.WithDocumentsRoot(cfg.Documents.Root)}
		if indexMetrics != nil {
			opts = append(opts, p2pci.WithMetrics(indexMetrics))
		}
		adp, err := p2pci.New(cfg.Adapters.P2PCI, rt.Catalog(), opts...)
		if err != nil {
			return fmt.Errorf("failed to create P2P-CI adapter: %w", err)
		}
		if err := rt.AddAdapter(adp); err != nil {
			return err
		}
		logger.Info("Adapter enabled", "protocol", adp.Protocol(), "port", adp.Port())
	} else {
		logger.Warn("P2P-CI adapter disabled; peers cannot register")
	}

	if cfg.ControlPlane.IsEnabled() {
		rt.SetAPIServer(api.NewServer(cfg.ControlPlane, rt.Catalog(), rt.Ready))
		logger.Info("API server configured", "port", cfg.ControlPlane.Port)
	} else {
		logger.Info("API server disabled")
	}

	if pidFile != "" {
		if err := writePidFile(pidFile); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- rt.Serve(ctx)
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

// startDaemon re-executes the binary in foreground mode, detached, with its
// output appended to the log file.
func startDaemon() error {
	pidPath := pidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}
	logPath := logFile
	if logPath == "" {
		logPath = GetDefaultLogFile()
	}

	if err := os.MkdirAll(GetDefaultStateDir(), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	if pid, err := readPidFile(pidPath); err == nil {
		if processAlive(pid) {
			return fmt.Errorf("p2pci is already running (PID %d)\nUse 'p2pci stop' to stop the running instance", pid)
		}
		_ = os.Remove(pidPath)
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	logHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = logHandle.Close() }()

	cmd := exec.Command(executable, daemonArgs...)
	cmd.Stdout = logHandle
	cmd.Stderr = logHandle
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	fmt.Printf("p2pci started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'p2pci stop' to stop the server")
	fmt.Println("Use 'p2pci status' to check server status")
	return nil
}
