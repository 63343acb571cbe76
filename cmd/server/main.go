package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/budwatch/backend/config"
	"github.com/budwatch/backend/internal/app"
	httpDelivery "github.com/budwatch/backend/internal/delivery/http"
	"github.com/budwatch/backend/internal/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("starting BudWatch backend",
		"version", "1.0.0",
		"environment", cfg.Server.Environment,
		"port", cfg.Server.Port,
		"cache", cfg.Cache.Type,
		"cache_ttl", cfg.Cache.TTL.String(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize pipeline, cache and storage
	pipeline, err := app.New(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("failed to initialize pipeline", "error", err)
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			zlog.Error("failed to release resources", "error", err)
		}
	}()

	detector := pipeline.Detector.Config()
	zlog.Info("deal selection configured",
		"target", detector.TargetDealCount,
		"min_discount", detector.MinDiscountPercent,
		"brand_cap", detector.MaxSameBrandTotal,
		"dispensary_cap", detector.MaxSameDispensaryTotal,
	)

	// Create HTTP handler and router
	handler := httpDelivery.NewHandler(pipeline.Deals, zlog)
	router := httpDelivery.SetupRouter(cfg, handler, zlog)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", "error", err)
	}
}
