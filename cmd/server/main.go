package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"selo/internal/audit"
	"selo/internal/compliance"
	"selo/internal/platform/config"
	"selo/internal/platform/httpserver"
	"selo/internal/platform/logger"
	httptransport "selo/internal/transport/http"
	"selo/internal/wallet/metrics"
	"selo/internal/wallet/privacy"
	"selo/internal/wallet/provider"
	"selo/internal/wallet/retry"
	"selo/internal/wallet/service"
	cardstore "selo/internal/wallet/store/card"
	customerstore "selo/internal/wallet/store/customer"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps
// the server lifecycle small. Business logic lives in internal services
// packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing wallet sync core",
		"addr", cfg.Addr,
		"provider_mode", string(cfg.ProviderMode),
		"sweep_interval", cfg.SweepInterval.String(),
	)

	pseudo, err := privacy.New(cfg.PrivacySecret)
	if err != nil {
		log.Error("privacy setup failed", "error", err)
		os.Exit(1)
	}

	var client provider.Client
	if cfg.ProviderMode == config.ProviderHTTP {
		client, err = provider.NewHTTP(cfg.ProviderBaseURL, cfg.ProviderKeyID, cfg.ProviderKeySecret)
		if err != nil {
			log.Error("provider setup failed", "error", err)
			os.Exit(1)
		}
	} else {
		client = provider.NewStub()
	}

	cards := cardstore.NewInMemory()
	customers := customerstore.NewInMemory()
	auditLog := audit.NewInMemoryStore()
	m := metrics.New()

	queue := retry.NewQueue(
		retry.WithBackoff(cfg.RetryBase, cfg.RetryCap),
		retry.WithMaxAttempts(cfg.RetryMaxAttempts),
	)

	wallet, err := service.New(cards, customers, client, pseudo, queue,
		service.WithLogger(log),
		service.WithMetrics(m),
		service.WithProgramName(cfg.ProgramName),
	)
	if err != nil {
		log.Error("wallet service setup failed", "error", err)
		os.Exit(1)
	}

	lgpd, err := compliance.New(customers, cards, wallet, pseudo, auditLog,
		compliance.WithLogger(log),
		compliance.WithMetrics(m),
		compliance.WithRetention(cfg.RetentionWindow),
	)
	if err != nil {
		log.Error("compliance service setup failed", "error", err)
		os.Exit(1)
	}

	sweeper, err := retry.NewSweeper(queue, wallet,
		retry.WithInterval(cfg.SweepInterval),
		retry.WithLogger(log),
		retry.WithMetrics(m),
	)
	if err != nil {
		log.Error("sweeper setup failed", "error", err)
		os.Exit(1)
	}

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go func() {
		if err := sweeper.Start(sweepCtx); err != nil && err != context.Canceled {
			log.Error("retry sweeper stopped", "error", err)
		}
	}()

	handler := httptransport.NewHandler(wallet, lgpd, queue, sweeper, log)
	router := httptransport.NewRouter(handler, log)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown on SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	log.Info("shutting down server gracefully")
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
