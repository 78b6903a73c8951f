package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"emberhq/ember/pkg/cache"
	"emberhq/ember/pkg/config"
	"emberhq/ember/pkg/engine"
	"emberhq/ember/pkg/logging"
	"emberhq/ember/pkg/metrics"
	"emberhq/ember/pkg/ratelimit"
	"emberhq/ember/pkg/retention"
	"emberhq/ember/pkg/server"
	"emberhq/ember/pkg/session"
	"emberhq/ember/pkg/store"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Ember proxy server",
	Long: `Start the Ember proxy server with the specified configuration.

The server listens on the configured address and proxies chat-completion
requests to the inference engine, streaming tokens back over SSE and
serving repeat prompts from the response cache.

Examples:
  # Start with default config
  ember run

  # Start with custom config
  ember run --config /etc/ember/config.yaml

  # Override listen address
  ember run --listen 0.0.0.0:8080

  # Validate config without starting server
  ember run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, levelVar, err := logging.Setup(cfg.Logging, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Ember v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()
	fmt.Printf("✓ Store initialized (%s)\n", storeLabel(cfg.Store))

	m := metrics.New(cfg.Metrics)
	ledger := session.NewLedger(st)
	cacheCtl := cache.NewController(st, cfg.Cache.TTL, m)

	eng := engine.NewHTTPClient(engine.Config{
		BaseURL:        cfg.Engine.BaseURL,
		Model:          cfg.Engine.Model,
		ConnectTimeout: cfg.Engine.ConnectTimeout,
	})
	eng.SetMalformedHook(m.IncMalformedFragments)
	fmt.Printf("✓ Engine client configured (%s, model %s)\n", cfg.Engine.BaseURL, cfg.Engine.Model)

	limiter := ratelimit.NewLimiter(cfg.Limits.RequestsPerWindow, cfg.Limits.Window)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional scheduled cache housekeeping. Lookup-time expiration does
	// not depend on the pruner running.
	if cfg.Retention.PruneSchedule != "" {
		pruner := retention.NewPruner(st, retention.Config{
			PruneSchedule: cfg.Retention.PruneSchedule,
			TTL:           cfg.Cache.TTL,
			StaleMultiple: cfg.Retention.StaleMultiple,
		})
		scheduler := retention.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer scheduler.Stop()
			fmt.Printf("✓ Retention scheduler started (%s)\n", cfg.Retention.PruneSchedule)
		}
	}

	// Hot reload of the runtime tunables: cache TTL, admission quota and
	// log level. Topology changes (listen address, store backend, engine
	// URL) still require a restart.
	if _, statErr := os.Stat(cfgFile); statErr == nil {
		watcher, err := config.NewWatcher(cfgFile, logger)
		if err != nil {
			slog.Warn("config watcher unavailable", "error", err)
		} else {
			defer watcher.Stop()
			go func() {
				err := watcher.Watch(ctx, func(next *config.Config) {
					cacheCtl.SetTTL(next.Cache.TTL)
					limiter.SetPolicy(next.Limits.RequestsPerWindow, next.Limits.Window)
					if lvl, err := logging.ParseLevel(next.Logging.Level); err == nil {
						levelVar.Set(lvl)
					}
					slog.Info("configuration reloaded",
						"cache_ttl", next.Cache.TTL.String(),
						"requests_per_window", next.Limits.RequestsPerWindow,
						"log_level", next.Logging.Level,
					)
				})
				if err != nil && ctx.Err() == nil {
					slog.Warn("config watcher stopped", "error", err)
				}
			}()
		}
	}

	srv := server.New(cfg.Server, cfg.Metrics, server.Deps{
		Ledger:  ledger,
		Cache:   cacheCtl,
		Engine:  eng,
		Metrics: m,
		Limiter: limiter,
	})

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Chat endpoint: http://%s/v1/chat/completions\n", cfg.Server.ListenAddress)
	if cfg.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

func storeLabel(cfg config.StoreConfig) string {
	if cfg.Backend == "memory" {
		return "memory"
	}
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite3"
	}
	return "sqlite/" + driver
}
