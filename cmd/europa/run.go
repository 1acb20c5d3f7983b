package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"mercator-hq/europa/pkg/cli"
	"mercator-hq/europa/pkg/config"
	"mercator-hq/europa/pkg/decisionlog"
	"mercator-hq/europa/pkg/policy/session"
	"mercator-hq/europa/pkg/policy/source"
	"mercator-hq/europa/pkg/server"
	"mercator-hq/europa/pkg/telemetry/metrics"
	"mercator-hq/europa/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Europa decision server",
	Long: `Start the Europa decision server with the specified configuration.

The server loads the policy from the configured source, exposes the
evaluation API, and keeps the policy current through file watching or
git polling.

Examples:
  # Start with default config
  europa run

  # Start with custom config
  europa run --config /etc/europa/config.yaml

  # Override listen address
  europa run --listen 0.0.0.0:8181

  # Validate config without starting the server
  europa run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger := newLogger(&cfg.Telemetry.Logging)
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	// Root context for the sweeper, watcher, and git poller. The server
	// shuts down gracefully when it is canceled.
	ctx := cli.SetupSignalHandler()

	// Metrics
	var serverOpts []server.Option
	serverOpts = append(serverOpts, server.WithLogger(logger))
	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithTracer(tracing.Tracer()),
	}
	if cfg.Telemetry.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		sessionOpts = append(sessionOpts, session.WithMetrics(metrics.NewPolicyMetrics(registry)))
		serverOpts = append(serverOpts, server.WithMetricsHandler(
			cfg.Telemetry.Metrics.Path,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		))
	}

	// Decision log
	if cfg.DecisionLog.Enabled {
		store, err := decisionlog.Open(cfg.DecisionLog.Path, logger)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open decision log: %w", err))
		}
		defer store.Close()

		sweeper, err := decisionlog.NewSweeper(store, cfg.DecisionLog.SweepSchedule, cfg.DecisionLog.Retention, logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		if err := sweeper.Start(ctx); err != nil {
			return cli.NewCommandError("run", err)
		}
		defer sweeper.Stop()

		sessionOpts = append(sessionOpts, session.WithRecorder(store))
		fmt.Printf("✓ Decision log open at %s (retention %s)\n", cfg.DecisionLog.Path, cfg.DecisionLog.Retention)
	}

	sess := session.New(sessionOpts...)

	// Policy source and initial load
	src, err := openSource(ctx, cfg, logger)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	if err := source.Apply(ctx, src, sess, cfg.Policy.QueryPath); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("initial policy load failed: %w", err))
	}
	fmt.Printf("✓ Policy loaded (version %d, query %s)\n", sess.Version(), cfg.Policy.QueryPath)

	// Keep the policy current.
	if cfg.Policy.Source == config.SourceFile && cfg.Policy.Watch {
		watcher := source.NewWatcher(cfg.Policy.Path, cfg.Policy.WatchDebounce, logger)
		go func() {
			if err := watcher.Watch(ctx, func() error {
				return source.Apply(ctx, src, sess, cfg.Policy.QueryPath)
			}); err != nil {
				logger.Error("policy watcher stopped", "error", err)
			}
		}()
		fmt.Printf("✓ Watching %s for changes\n", cfg.Policy.Path)
	}
	if gitSrc, ok := src.(*source.GitSource); ok {
		go pollGit(ctx, gitSrc, sess, cfg, logger)
		fmt.Printf("✓ Polling %s every %s\n", cfg.Policy.Git.URL, cfg.Policy.Git.PollInterval)
	}

	srv := server.NewServer(&cfg.Server, sess, serverOpts...)

	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("  Evaluate: POST http://%s/v1/evaluate\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("  Metrics:  GET  http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}

	// Start blocks until signal, context cancellation, or server failure.
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

func newLogger(cfg *config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// openSource builds the configured policy source. The git source is cloned
// or opened before first use.
func openSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (source.Source, error) {
	switch cfg.Policy.Source {
	case config.SourceGit:
		gitSrc, err := source.NewGitSource(source.GitConfig{
			URL:       cfg.Policy.Git.URL,
			Branch:    cfg.Policy.Git.Branch,
			Path:      cfg.Policy.Path,
			LocalPath: cfg.Policy.Git.LocalPath,
			Depth:     cfg.Policy.Git.Depth,
			Token:     cfg.Policy.Git.Token,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := gitSrc.Open(ctx); err != nil {
			return nil, fmt.Errorf("failed to open policy repository: %w", err)
		}
		return gitSrc, nil
	default:
		return source.NewFileSource(cfg.Policy.Path, logger), nil
	}
}

// pollGit pulls the policy repository on an interval and reloads the session
// when the head moves. Pull and reload failures keep the previous policy.
func pollGit(ctx context.Context, src *source.GitSource, sess *session.Session, cfg *config.Config, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.Policy.Git.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			changed, err := src.Pull(ctx)
			if err != nil {
				logger.Warn("policy repository pull failed", "error", err)
				continue
			}
			if !changed {
				continue
			}
			if err := source.Apply(ctx, src, sess, cfg.Policy.QueryPath); err != nil {
				logger.Warn("policy reload failed, keeping previous policy", "error", err)
			}
		}
	}
}
