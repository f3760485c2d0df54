package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/salon-crm/internal/api"
	"github.com/ignite/salon-crm/internal/bootstrap"
	"github.com/ignite/salon-crm/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if cfg.Segmentation.SchedulerEnabled() {
		if err := app.Scheduler.Start(); err != nil {
			logger.Error("failed to start segment scheduler", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("in-process segment scheduler disabled, expecting cmd/worker to trigger runs")
	}

	var reports api.Pinger
	if app.Reports != nil {
		reports = app.Reports
	}
	handlers := api.NewSegmentHandlers(app.Segments, app.Query)
	health := api.NewHealthChecker(app.DB, app.Redis, reports)
	server := api.NewServer(cfg.Server, api.SetupRoutes(handlers, health, cfg.Server.AllowedOrigins))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
