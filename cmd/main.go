package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"webscout/api"
	"webscout/browser"
	"webscout/config"
	"webscout/extract"
	"webscout/search"
)

func main() {
	// =========
	// Config
	// =========
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// =========
	// Logging
	// =========
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// =========
	// Browser session pool
	// =========
	pool := browser.NewPool(logger, cfg.MaxSessions, cfg.ProxyURL, cfg.UserAgent)

	// =========
	// Search orchestrator
	// =========
	providers := search.DefaultProviders(pool, logger, cfg.ProviderTimeout)
	orchestrator := search.NewOrchestrator(providers, pool, logger, cfg.DomainThreshold, cfg.MaxCount)

	// =========
	// Content extractor
	// =========
	extractor := extract.NewExtractor(pool, logger, extract.Options{
		Workers:       cfg.ExtractWorkers,
		Timeout:       cfg.ExtractTimeout,
		PreviewLength: cfg.PreviewLength,
		MaxPageBytes:  cfg.MaxPageBytes,
	})

	// =========
	// HTTP gateway
	// =========
	server := api.NewServer(orchestrator, extractor, logger, cfg.AppPort, cfg.DefaultCount)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	orchestrator.CloseAll()
	extractor.CloseAll()
}
