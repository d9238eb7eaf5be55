// streamtest connects to the kitchen realtime channels and prints typed messages to the console.
// Usage: go run ./cmd/streamtest --config configs/kitchend.local.yaml
//
// Optional environment variables:
//
//	KITCHEN_WS_URL  - Default realtime endpoint
//	KITCHEN_API_KEY - Sent as X-API-Key on the handshake
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/kitchen-ops/internal/config"
	"github.com/rickgao/kitchen-ops/internal/inventory"
	"github.com/rickgao/kitchen-ops/internal/model"
	"github.com/rickgao/kitchen-ops/internal/realtime"
)

func main() {
	configPath := flag.String("config", "configs/kitchend.example.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	sendTag := flag.String("send", "", "message type to send once connected")
	sendPayload := flag.String("payload", "null", "JSON payload for --send")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rtCfg := realtime.Config{
		URL:                  cfg.Realtime.URL,
		BaseURL:              cfg.Realtime.BaseURL,
		APIKey:               cfg.API.APIKey,
		MaxReconnectAttempts: cfg.Realtime.MaxReconnectAttempts,
		ReconnectDelay:       cfg.Realtime.ReconnectDelay,
		HandshakeTimeout:     cfg.Realtime.HandshakeTimeout,
		WriteTimeout:         cfg.Realtime.WriteTimeout,
		PingInterval:         cfg.Realtime.PingInterval,
		PongTimeout:          cfg.Realtime.PongTimeout,
	}

	inv := realtime.NewClient(rtCfg, logger.With("channel", "inventory"))
	defer inv.Close()
	waste := realtime.NewClient(rtCfg, logger.With("channel", "waste-tracking"))
	defer waste.Close()

	inv.OnStatusChange(func(s realtime.State) {
		fmt.Printf("[STATUS] channel=inventory state=%s\n", s)
		if s == realtime.StateConnected && *sendTag != "" {
			if err := inv.Send(*sendTag, json.RawMessage(*sendPayload)); err != nil {
				logger.Error("send failed", "type", *sendTag, "error", err)
			}
		}
	})
	waste.OnStatusChange(func(s realtime.State) {
		fmt.Printf("[STATUS] channel=waste-tracking state=%s\n", s)
	})

	lost := make(chan string, 2)
	inv.OnConnectionLost(func() { lost <- "inventory" })
	waste.OnConnectionLost(func() { lost <- "waste-tracking" })

	realtime.Subscribe(inv, inventory.InventoryUpdates, func(items []model.InventoryItem) {
		if *verbose {
			printJSON("INVENTORY UPDATE", items)
			return
		}
		for _, item := range items {
			fmt.Printf("[INVENTORY UPDATE] id=%s name=%s qty=%s %s status=%s\n",
				item.ID, item.Name, item.Quantity, item.Unit, item.Status)
		}
	})
	realtime.Subscribe(inv, inventory.InventoryAlerts, func(alerts []model.InventoryAlert) {
		if *verbose {
			printJSON("INVENTORY ALERT", alerts)
			return
		}
		for _, a := range alerts {
			fmt.Printf("[INVENTORY ALERT] id=%s item=%s expiry=%s severity=%s\n",
				a.ID, a.Item, a.Expiry, a.Status)
		}
	})
	realtime.Subscribe(waste, inventory.WasteTracking, func(ev model.WasteEvent) {
		if *verbose {
			printJSON("WASTE", ev)
			return
		}
		fmt.Printf("[WASTE] item=%s qty=%.2f %s reason=%s cost=%.2f\n",
			ev.Item, ev.Quantity, ev.Unit, ev.Reason, ev.Cost)
	})

	inv.Connect(cfg.Realtime.InventoryPath)
	waste.Connect(cfg.Realtime.WastePath)

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for name, c := range map[string]*realtime.Client{"inventory": inv, "waste-tracking": waste} {
					s := c.Stats()
					logger.Info("stats",
						"channel", name,
						"state", s.State,
						"received", s.FramesReceived,
						"dropped", s.FramesDropped,
						"sent", s.FramesSent,
						"reconnect_attempts", s.ReconnectAttempts,
					)
				}
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	remaining := 2
	for remaining > 0 {
		select {
		case <-ctx.Done():
			remaining = 0
		case name := <-lost:
			logger.Error("connection lost, giving up", "channel", name)
			remaining--
		}
	}

	logger.Info("shutdown complete")
}

func printJSON(label string, v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Printf("[%s] %s\n", label, data)
}
