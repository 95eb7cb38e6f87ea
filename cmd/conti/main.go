package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"conti/internal/amqp"
	"conti/internal/cache"
	"conti/internal/cli"
	apphttp "conti/internal/http"
	"conti/internal/log"
	"conti/internal/middleware/ratelimit"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := context.Background()
	ledgerSvc, err := cli.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open ledger", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// Category caches live inside the store; the service follows session
	// swaps, so registering it once covers every ledger opened later.
	caches := cache.NewManager()
	caches.Register(ledgerSvc)
	caches.StartCleanup(cfg.CacheCleanupInterval)

	// The export queue is optional: without a broker the API still serves
	// CSV downloads and answers 503 on POST /api/exports.
	var publisher apphttp.ExportPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Export queue unavailable", log.FieldError, err)
		} else {
			publisher = amqpClient
		}
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:            ":" + cfg.Port,
		DefaultPageSize: cfg.DefaultPageSize,
		RateLimit:       ratelimit.DefaultConfig(),
	}, ledgerSvc, publisher, logger)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := ledgerSvc.Close(); err != nil {
			logger.Error("Ledger close error", log.FieldError, err)
		}
	})

	_, label, _ := ledgerSvc.Current()
	logger.Info("Starting conti server", "port", cfg.Port, "backend", cfg.DataBackend, log.FieldLedger, label)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
