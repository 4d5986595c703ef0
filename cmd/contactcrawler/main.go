// Package main wires together the contact crawler service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/leadharvest/contact-crawler/internal/api"
	"github.com/leadharvest/contact-crawler/internal/clock/system"
	"github.com/leadharvest/contact-crawler/internal/config"
	"github.com/leadharvest/contact-crawler/internal/crawler"
	collyfetcher "github.com/leadharvest/contact-crawler/internal/fetcher/colly"
	headlessfetcher "github.com/leadharvest/contact-crawler/internal/fetcher/headless"
	"github.com/leadharvest/contact-crawler/internal/id/uuid"
	"github.com/leadharvest/contact-crawler/internal/jobs"
	"github.com/leadharvest/contact-crawler/internal/logging"
	"github.com/leadharvest/contact-crawler/internal/metrics"
	memorypublisher "github.com/leadharvest/contact-crawler/internal/publisher/memory"
	pubsubpublisher "github.com/leadharvest/contact-crawler/internal/publisher/pubsub"
	"github.com/leadharvest/contact-crawler/internal/render/detector"
	"github.com/leadharvest/contact-crawler/internal/scheduler"
	"github.com/leadharvest/contact-crawler/internal/session"
	storememory "github.com/leadharvest/contact-crawler/internal/store/memory"
	storepostgres "github.com/leadharvest/contact-crawler/internal/store/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeStore()

	clock := system.New()
	idGen := uuid.NewGenerator()

	probeFetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
	var headless crawler.Fetcher
	if cfg.Headless.Enabled {
		headlessFetcher, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       cfg.Headless.MaxParallel,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
		})
		if err != nil {
			logger.Warn("headless fetcher init failed", zap.Error(err))
		} else {
			headless = headlessFetcher
			defer headlessFetcher.Close()
		}
	}
	detect := detector.NewHeuristic(0)

	runner := session.NewRunner(probeFetcher, headless, detect, session.Config{
		MaxPages:        cfg.Crawl.MaxPages,
		Concurrency:     cfg.Crawl.Concurrency,
		Tier1LinkCap:    cfg.Crawl.Tier1LinkCap,
		Tier2LinkCap:    cfg.Crawl.Tier2LinkCap,
		Timeout:         cfg.SessionTimeout(),
		HeadlessAllowed: cfg.Headless.Enabled,
	}, logger.Named("session"))

	publisher, closePublisher := buildPublisher(ctx, cfg, logger)
	defer closePublisher()

	pool := scheduler.New(store, runner, nil, publisher, clock, scheduler.Config{
		PollInterval:         cfg.PollInterval(),
		ErrorBackoff:         cfg.ErrorBackoff(),
		BatchSize:            cfg.Scheduler.BatchSize,
		MaxConcurrentWorkers: cfg.Scheduler.MaxConcurrentWorkers,
		EventTopic:           cfg.PubSub.TopicName,
	}, logger.Named("scheduler"))

	service := jobs.NewService(store, idGen, pool, logger.Named("jobs"))
	apiServer := api.NewServer(service, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	pool.Start()
	logger.Info("scheduler started")

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}

	pool.Stop()
	pool.Wait()
	logger.Info("shutdown complete")
}

func buildStore(ctx context.Context, cfg config.Config) (crawler.Store, func(), error) {
	switch cfg.Store.Provider {
	case "postgres":
		pg, err := storepostgres.NewStore(ctx, storepostgres.Config{
			DSN:      cfg.Store.DSN,
			MaxConns: int32(cfg.Store.MaxOpenConns),
			MinConns: int32(cfg.Store.MinOpenConns),
		})
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		return storememory.NewStore(), func() {}, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (crawler.Publisher, func()) {
	if cfg.PubSub.ProjectID == "" || cfg.PubSub.TopicName == "" {
		return memorypublisher.New(), func() {}
	}
	pub, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		logger.Warn("pubsub publisher init failed, using in-memory publisher", zap.Error(err))
		return memorypublisher.New(), func() {}
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			logger.Warn("pubsub close failed", zap.Error(err))
		}
	}
}
