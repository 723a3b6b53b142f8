package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/efreitasn/replaybroker/internal/config"
	"github.com/efreitasn/replaybroker/internal/engine"
	"github.com/efreitasn/replaybroker/internal/handler"
	"github.com/efreitasn/replaybroker/internal/ingest"
	"github.com/efreitasn/replaybroker/internal/marketdata/filestore"
	"github.com/efreitasn/replaybroker/internal/marketdata/pgstore"
	"github.com/efreitasn/replaybroker/internal/service"
	"github.com/efreitasn/replaybroker/internal/store"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Historical sources. Postgres is registered last so it wins for the
	// markets both sources serve.
	fetchers := engine.NewFetcherRegistry()
	if cfg.DataDir != "" {
		markets := filestore.Register(fetchers, cfg.DataDir)
		logger.Info("file source registered", slog.String("dir", cfg.DataDir), slog.Any("markets", markets))
	}
	if cfg.Postgres.DSN != "" {
		pool, err := pgstore.Connect(ctx, pgstore.Config{
			DSN:      cfg.Postgres.DSN,
			MaxConns: cfg.Postgres.MaxConns,
		})
		if err != nil {
			logger.Error("failed to connect to postgres", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()
		pgstore.Register(fetchers, pool)
		logger.Info("postgres source registered")
	}

	broker := service.NewBroker(fetchers, cfg.CommissionCoeff, logger)
	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), cfg.WebhookTimeout, logger)
	router := handler.NewRouter(broker, webhookSvc, logger)

	// Streamed quotes.
	var consumerWG sync.WaitGroup
	if len(cfg.Kafka.Brokers) > 0 {
		consumer := ingest.NewConsumer(ingest.NewReader(ingest.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}), broker, logger)

		consumerWG.Add(1)
		go func() {
			defer consumerWG.Done()
			if err := consumer.Run(ctx); err != nil {
				logger.Error("quote consumer failed", slog.String("error", err.Error()))
			}
			if err := consumer.Close(); err != nil {
				logger.Warn("closing quote consumer", slog.String("error", err.Error()))
			}
		}()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Stop accepting requests, then the consumer, then let in-flight
	// webhook deliveries finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()
	consumerWG.Wait()
	webhookSvc.Wait()

	logger.Info("server stopped")
}
