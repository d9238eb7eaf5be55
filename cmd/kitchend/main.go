package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/kitchen-ops/internal/api"
	"github.com/rickgao/kitchen-ops/internal/config"
	"github.com/rickgao/kitchen-ops/internal/database"
	"github.com/rickgao/kitchen-ops/internal/history"
	"github.com/rickgao/kitchen-ops/internal/inventory"
	"github.com/rickgao/kitchen-ops/internal/model"
	"github.com/rickgao/kitchen-ops/internal/monitor"
	"github.com/rickgao/kitchen-ops/internal/realtime"
	"github.com/rickgao/kitchen-ops/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/kitchend.local.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "config", *configPath)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting kitchend",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
		"restaurant", cfg.Instance.Restaurant,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("kitchend failed", "error", err)
		os.Exit(1)
	}

	logger.Info("kitchend stopped")
}

func run(cfg *config.AgentConfig, logger *slog.Logger) error {
	// Create context cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiClient := api.NewClient(
		cfg.API.RestURL,
		api.WithAPIKey(cfg.API.APIKey),
		api.WithLogger(logger),
		api.WithTimeout(cfg.API.Timeout),
		api.WithRetries(cfg.API.MaxRetries, cfg.API.RetryBackoff),
	)

	rtCfg := realtimeConfig(cfg)
	invClient := realtime.NewClient(rtCfg, logger.With("channel", "inventory"))
	defer invClient.Close()
	wasteClient := realtime.NewClient(rtCfg, logger.With("channel", "waste-tracking"))
	defer wasteClient.Close()

	channels := []monitor.Channel{
		{Name: "inventory", Path: cfg.Realtime.InventoryPath, Client: invClient},
		{Name: "waste-tracking", Path: cfg.Realtime.WastePath, Client: wasteClient},
	}
	for _, ch := range channels {
		ch.Client.OnConnectionLost(func() {
			logger.Error("realtime connection lost, reconnection abandoned",
				"channel", ch.Name,
				"attempts", cfg.Realtime.MaxReconnectAttempts,
			)
		})
	}

	// Optional history database
	var writer *history.Writer
	var db pinger
	if cfg.Database.Enabled {
		logger.Info("connecting to history database",
			"host", cfg.Database.Postgres.Host,
			"port", cfg.Database.Postgres.Port,
			"database", cfg.Database.Postgres.Name,
		)
		pool, err := database.Open(ctx, cfg.Database.Postgres)
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer pool.Close()
		db = pool

		writer = history.NewWriter(history.Config{
			BatchSize:     cfg.History.BatchSize,
			FlushInterval: cfg.History.FlushInterval,
			BufferSize:    cfg.History.BufferSize,
		}, pool, logger)
		if err := writer.Start(ctx); err != nil {
			return fmt.Errorf("start history writer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := writer.Stop(shutdownCtx); err != nil {
				logger.Error("history writer stop failed", "error", err)
			}
		}()
	}

	svc := inventory.NewService(apiClient, invClient, wasteClient,
		inventory.WithChannels(cfg.Realtime.InventoryPath, cfg.Realtime.WastePath))
	tracker := inventory.NewTracker(svc, logger)

	mon := monitor.New(monitor.Config{
		Interval: cfg.Monitor.Interval,
		Timeout:  cfg.Monitor.Timeout,
	}, apiClient, channels, logger)
	if err := mon.Start(ctx); err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mon.Stop(shutdownCtx)
	}()

	// Live subscriptions connect both channels.
	tracker.Start()
	defer tracker.Stop()

	if writer != nil {
		defer realtime.Subscribe(invClient, inventory.InventoryUpdates, writer.RecordInventory)()
	}
	defer svc.SubscribeToWasteTracking(func(ev model.WasteEvent) {
		logger.Info("waste recorded",
			"item", ev.Item,
			"quantity", ev.Quantity,
			"unit", ev.Unit,
			"reason", ev.Reason,
		)
		if writer != nil {
			writer.RecordWaste(ev)
		}
	})()

	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Health.Port),
		Handler:           newHealthHandler(mon, tracker, writer, db, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// The initial load is best effort; live updates fill the view either way.
		if err := tracker.Refresh(gctx); err != nil {
			logger.Warn("initial inventory load failed", "error", err)
			return nil
		}
		logger.Info("inventory loaded",
			"items", len(tracker.Items()),
			"alerts", len(tracker.Alerts()),
			"needs_attention", len(tracker.NeedsAttention()),
		)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	logger.Info("kitchend running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Health.Port),
	)

	return g.Wait()
}

// realtimeConfig maps the agent config onto the realtime client config.
func realtimeConfig(cfg *config.AgentConfig) realtime.Config {
	return realtime.Config{
		URL:                  cfg.Realtime.URL,
		BaseURL:              cfg.Realtime.BaseURL,
		APIKey:               cfg.API.APIKey,
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
		ReconnectDelay:       cfg.Realtime.ReconnectDelay,
		HandshakeTimeout:     cfg.Realtime.HandshakeTimeout,
		WriteTimeout:         cfg.Realtime.WriteTimeout,
		PingInterval:         cfg.Realtime.KeepaliveInterval(),
		PongTimeout:          cfg.Realtime.PongTimeout,
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
