package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/ignite/salon-crm/internal/bootstrap"
	"github.com/ignite/salon-crm/internal/domain"
	"github.com/ignite/salon-crm/internal/pkg/logger"
)

// The worker runs the daily segment update outside the API process. With
// -once it performs a single run and exits, for cron style deployments.
func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	once := flag.Bool("once", false, "run one segment update and exit")
	flag.Parse()

	cfg, err := bootstrap.LoadConfig(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if *once {
		summary, err := app.Segments.Run(ctx, domain.TriggerScheduled)
		if err != nil {
			logger.Error("segment update failed", "error", err)
			app.Close()
			os.Exit(1)
		}
		logger.Info("segment update done", "run_id", summary.ID, "assigned", summary.Assigned)
		return
	}

	if err := app.Scheduler.Start(); err != nil {
		logger.Error("failed to start segment scheduler", "error", err)
		os.Exit(1)
	}
	<-ctx.Done()
	logger.Info("worker shutting down")
}
