package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/svdwoude/edmarket-data/internal/bestprice"
	"github.com/svdwoude/edmarket-data/internal/config"
	"github.com/svdwoude/edmarket-data/internal/database"
	"github.com/svdwoude/edmarket-data/internal/dispatch"
	"github.com/svdwoude/edmarket-data/internal/feed"
	"github.com/svdwoude/edmarket-data/internal/lookup"
	"github.com/svdwoude/edmarket-data/internal/process"
	"github.com/svdwoude/edmarket-data/internal/refcache"
	"github.com/svdwoude/edmarket-data/internal/resolve"
	"github.com/svdwoude/edmarket-data/internal/store"
	"github.com/svdwoude/edmarket-data/internal/version"
)

const stopTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "configs/listener.local.yaml", "path to config file")
	flag.Parse()

	// .env is optional; config expansion handles the rest.
	_ = godotenv.Load()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting listener",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"feed_url", cfg.Feed.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("database connected")

	st := store.NewPgx(db, logger)
	lookupClient := lookup.New(cfg.Lookup, logger)
	cache := refcache.New(logger)

	// Warm the reference cache and fetch the alt-name table concurrently.
	// A failed alt-name fetch degrades commodity resolution but is not fatal.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cache.Load(gctx, st)
	})
	g.Go(func() error {
		altNames, err := lookupClient.AltCommodityNames(gctx)
		if err != nil {
			logger.Warn("alternative commodity names unavailable", "error", err)
			return nil
		}
		cache.SetAltNames(altNames)
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("failed to warm reference cache", "error", err)
		os.Exit(1)
	}

	commodities, systems, stations, factions := cache.Stats()
	logger.Info("reference cache ready",
		"commodities", commodities,
		"systems", systems,
		"stations", stations,
		"factions", factions,
	)

	// Build the pipeline: feed listener -> dispatcher -> schema processors.
	resolver := resolve.NewResolver(cache, st, lookupClient, cfg.Retry, logger)
	best := bestprice.NewMaintainer(st, cfg.Listings, logger)

	commodityProc := process.NewCommodityProcessor(cfg.Processors, cfg.Listings,
		cache, st, resolver, best, logger)
	journalProc := process.NewJournalProcessor(cfg.Processors, cache, st, logger)

	listener := feed.NewListener(cfg.Feed, nil, logger)
	dispatcher := dispatch.NewDispatcher(listener.Messages(), []dispatch.Processor{
		commodityProc,
		journalProc,
	}, cfg.Processors.QueueWarnDepth, logger)

	if err := commodityProc.Start(ctx); err != nil {
		logger.Error("failed to start commodity processor", "error", err)
		os.Exit(1)
	}
	if err := journalProc.Start(ctx); err != nil {
		logger.Error("failed to start journal processor", "error", err)
		os.Exit(1)
	}
	if err := dispatcher.Start(ctx); err != nil {
		logger.Error("failed to start dispatcher", "error", err)
		os.Exit(1)
	}
	if err := listener.Start(ctx); err != nil {
		logger.Error("failed to start feed listener", "error", err)
		os.Exit(1)
	}

	logger.Info("listener running", "instance_id", cfg.Instance.ID)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	// Stop upstream first so processors can drain what is already queued.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), stopTimeout)
	defer shutdownCancel()

	listener.Stop(shutdownCtx)
	dispatcher.Stop(shutdownCtx)
	commodityProc.Stop(shutdownCtx)
	journalProc.Stop(shutdownCtx)

	stats := dispatcher.Stats()
	logger.Info("listener stopped",
		"received", stats.Received,
		"routed", stats.Routed,
		"unknown_schema", stats.Unknown,
	)
}
