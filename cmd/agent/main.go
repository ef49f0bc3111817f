package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/platekeeper/internal/agent"
	"github.com/udisondev/platekeeper/internal/bridge"
	"github.com/udisondev/platekeeper/internal/config"
	"github.com/udisondev/platekeeper/internal/console"
	"github.com/udisondev/platekeeper/internal/metrics"
)

const AgentConfigPath = "config/agent.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := newRootCmd(cancel).ExecuteContext(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func newRootCmd(stop context.CancelFunc) *cobra.Command {
	var (
		configPath string
		noConsole  bool
	)
	cmd := &cobra.Command{
		Use:           "platekeeper",
		Short:         "Autonomous agent that walks to a plate and holds it",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				path = AgentConfigPath
				if p := os.Getenv("PLATEKEEPER_CONFIG"); p != "" {
					path = p
				}
			}
			return run(cmd.Context(), stop, path, !noConsole)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to agent config (default $PLATEKEEPER_CONFIG or "+AgentConfigPath+")")
	cmd.Flags().BoolVar(&noConsole, "no-console", false, "run without the operator prompt")
	return cmd
}

func run(ctx context.Context, stop context.CancelFunc, cfgPath string, withConsole bool) error {
	cfg, err := config.LoadAgent(cfgPath)
	if err != nil {
		return fmt.Errorf("loading agent config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
	agent.EnableDebugLogging(logLevel == slog.LevelDebug)

	slog.Info("platekeeper starting",
		"log_level", cfg.LogLevel,
		"bridge", cfg.Bridge.URL,
		"username", cfg.Bridge.Username,
		"destination", fmt.Sprintf("%.0f %.0f %.0f", cfg.Destination.X, cfg.Destination.Y, cfg.Destination.Z))

	m := metrics.Default()
	runner := agent.NewRunner(cfg, bridge.Dialer(cfg.Bridge), agent.WithMetrics(m))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting agent runner", "initial_delay", cfg.Reconnect.InitialDelay)
		if err := runner.Run(gctx); err != nil {
			return fmt.Errorf("agent runner: %w", err)
		}
		return nil
	})

	if withConsole {
		g.Go(func() error {
			slog.Info("starting operator console")
			err := console.Run(gctx, console.Options{HistoryFile: historyFile()}, runner.Input)
			if errors.Is(err, console.ErrInterrupted) {
				slog.Info("shutting down", "signal", "console interrupt")
				stop()
				return nil
			}
			if err != nil {
				return fmt.Errorf("operator console: %w", err)
			}
			return nil
		})
	}

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			slog.Info("starting metrics server", "addr", cfg.MetricsAddr)
			if err := serveMetrics(gctx, cfg.MetricsAddr, prometheus.DefaultGatherer); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("agent error: %w", err)
	}

	return nil
}

// serveMetrics exposes /metrics until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(gatherer))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".platekeeper_history")
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
