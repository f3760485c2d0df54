// Package bootstrap wires configuration into the running components shared
// by the server and worker binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/salon-crm/internal/config"
	"github.com/ignite/salon-crm/internal/pkg/distlock"
	"github.com/ignite/salon-crm/internal/pkg/logger"
	"github.com/ignite/salon-crm/internal/repository/postgres"
	"github.com/ignite/salon-crm/internal/service/segmentation"
	"github.com/ignite/salon-crm/internal/storage"
	"github.com/ignite/salon-crm/internal/worker"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config    *config.Config
	DB        *sql.DB
	Redis     *redis.Client
	Reports   storage.ReportStore
	Segments  *segmentation.Service
	Query     *segmentation.QueryService
	Scheduler *worker.SegmentScheduler
}

// LoadConfig reads path when it exists, otherwise starts from defaults, then
// applies environment overrides and validates.
func LoadConfig(path string) (*config.Config, error) {
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.LoadFromEnv(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ConfigureLogging(cfg.Logging)
	return cfg, nil
}

// ConfigureLogging applies the logging section to the default logger.
func ConfigureLogging(cfg config.LoggingConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	logger.SetRedactPII(cfg.Redact())
}

// New connects to every configured backend and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	loc, err := cfg.Segmentation.Location()
	if err != nil {
		return nil, err
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, DB: db}

	app.Redis = connectRedis(ctx, cfg.Redis)

	app.Reports, err = storage.New(ctx, cfg.Report)
	if err != nil {
		// Reports are best effort; run without them.
		logger.Warn("run report store unavailable", "error", err)
		app.Reports = nil
	}

	reporters := []segmentation.Reporter{postgres.NewRunHistoryRepo(db)}
	if app.Reports != nil {
		reporters = append(reporters, app.Reports)
	}

	seg := cfg.Segmentation
	locks := distlock.NewFactory(app.Redis, db, seg.LockKey, seg.LockTTL())
	app.Segments = segmentation.NewService(postgres.NewTxManager(db), locks, segmentation.Config{
		BatchSize: seg.BatchSize,
		LockTTL:   seg.LockTTL(),
		Location:  loc,
	}, reporters...)
	app.Query = segmentation.NewQueryService(postgres.NewQueryRepo(db))
	app.Scheduler = worker.NewSegmentScheduler(app.Segments, seg.ScheduleHour, seg.ScheduleMinute, loc)

	logger.Info("segmentation ready",
		"batch_size", seg.BatchSize,
		"schedule", fmt.Sprintf("%02d:%02d", seg.ScheduleHour, seg.ScheduleMinute),
		"timezone", loc.String(),
		"distributed_lock", lockBackend(app.Redis))
	return app, nil
}

// Close releases connections.
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

// connectRedis returns nil when Redis is off or unreachable; the run lock
// then falls back to a Postgres advisory lock.
func connectRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled || cfg.URL == "" {
		logger.Info("Redis not configured, using PG advisory locks for the run lock")
		return nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	var client *redis.Client
	if err != nil {
		client = redis.NewClient(&redis.Options{Addr: cfg.URL})
	} else {
		client = redis.NewClient(opts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis connection failed, falling back to PG advisory locks", "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("Redis connected, distributed locking enabled")
	return client
}

func lockBackend(client *redis.Client) string {
	if client != nil {
		return "redis"
	}
	return "postgres"
}
