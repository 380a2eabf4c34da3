// Command polywatchd runs the polywatch daemon: it polls the Polymarket
// Gamma API for newly created events, dispatches notifications, keeps the
// watchlist in sync with the remote service, and serves the local HTTP
// API.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"polywatch/internal/category"
	"polywatch/internal/config"
	"polywatch/internal/domain"
	"polywatch/internal/gamma"
	"polywatch/internal/httpapi"
	"polywatch/internal/monitor"
	"polywatch/internal/notify"
	"polywatch/internal/store"
	"polywatch/internal/util"
	"polywatch/internal/watchlist"
)

func main() {
	// Load .env if present; real environment wins.
	_ = godotenv.Load()

	cfgPath := "config/polywatch.yaml"
	if p := os.Getenv("POLYWATCH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("loading config: %v", err)
		}
		cfg = config.Default()
	}

	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}

	// Stores.
	kv, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer kv.Close()
	archive := store.NewParquetArchive(cfg.Storage.DataDir)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Seed the subscriber identity from config so the reconciler can
	// address the remote service.
	if cfg.Watchlist.SubscriberID != "" {
		if err := kv.SetSubscriberID(ctx, cfg.Watchlist.SubscriberID); err != nil {
			log.Fatalf("seeding subscriber id: %v", err)
		}
	}

	// Clients.
	feed := gamma.NewClient(
		cfg.Feed.BaseURL,
		time.Duration(cfg.Feed.TimeoutSeconds)*time.Second,
		cfg.Feed.RateLimitPerMin,
	)

	var remote watchlist.Remote
	if cfg.Watchlist.BaseURL != "" {
		remote = watchlist.NewClient(
			cfg.Watchlist.BaseURL,
			time.Duration(cfg.Watchlist.TimeoutSeconds)*time.Second,
		)
	}
	recon := watchlist.New(
		kv, kv, remote,
		time.Duration(cfg.Watchlist.TimeoutSeconds)*time.Second,
		logger,
	)

	classifier := category.NewClassifier(categoryRules(cfg))
	sink := notify.New(
		cfg.Notify.WebhookURL,
		time.Duration(cfg.Notify.TimeoutSeconds)*time.Second,
		logger,
	)

	// Reconcile the watchlist against the remote service on startup,
	// using a fresh batch to resolve snapshots. Best-effort.
	startupBatch, err := feed.RecentEvents(ctx, cfg.Monitor.FetchLimit)
	if err != nil {
		logger.Warn("startup fetch failed", "error", err)
	}
	if err := recon.Reconcile(ctx, startupBatch); err != nil {
		logger.Warn("startup reconcile failed", "error", err)
	}

	// WebSocket hub.
	hub := httpapi.NewHub(logger)
	go hub.Run(ctx)

	// HTTP API.
	api := httpapi.NewServer(feed, recon, archive, classifier, hub, logger)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.Handler(),
	}
	go func() {
		logger.Info("api server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Monitor loop (blocks until signal).
	mon := monitor.New(monitor.Config{
		Feed:      feed,
		Markers:   kv,
		Notifier:  sink,
		Refresher: recon,
		Posted:    archive,
		Broadcast: func(events []domain.Event) {
			hub.BroadcastNewEvents(events, classifier.Categorize)
		},
		Classifier:          classifier,
		Interval:            time.Duration(cfg.Monitor.IntervalSeconds) * time.Second,
		FetchLimit:          cfg.Monitor.FetchLimit,
		MaxEventAge:         time.Duration(cfg.Monitor.MaxEventAgeHours) * time.Hour,
		HighVolumeThreshold: cfg.Monitor.HighVolumeThreshold,
		ClickURL:            cfg.Notify.ClickURL,
		Log:                 logger,
	})
	mon.Run(ctx)

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Drain in-flight watchlist pushes before exiting.
	recon.Wait()
}

// categoryRules converts the configured category table, falling back to
// the built-in rules when none are configured.
func categoryRules(cfg *config.Config) []category.Rule {
	if len(cfg.Categories) == 0 {
		return nil
	}
	rules := make([]category.Rule, len(cfg.Categories))
	for i, r := range cfg.Categories {
		rules[i] = category.Rule{Name: r.Name, Keywords: r.Keywords}
	}
	return rules
}
