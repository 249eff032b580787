package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/trainersamay-api/internal/events"
	"github.com/noah-isme/trainersamay-api/internal/repository"
	"github.com/noah-isme/trainersamay-api/internal/service"
	"github.com/noah-isme/trainersamay-api/pkg/cache"
	"github.com/noah-isme/trainersamay-api/pkg/config"
	"github.com/noah-isme/trainersamay-api/pkg/database"
	"github.com/noah-isme/trainersamay-api/pkg/logger"
)

// mark-absent runs one absence sweep and exits. It is meant for cron when
// the in-process sweeper is disabled.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	cacheRepo := repository.NewCacheRepository(nil, "trainersamay")
	cacheEnabled := false
	if cfg.Reports.CacheEnabled {
		if client, err := cache.NewRedis(ctx, cfg.Redis); err != nil {
			logr.Warn("redis unavailable, report cache left as is", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, "trainersamay")
			cacheEnabled = true
		}
	}

	publisher, err := events.New(cfg.Events, logr)
	if err != nil {
		logr.Warn("nats unavailable, absence events disabled", zap.Error(err))
		publisher = events.NoopPublisher{}
	}
	defer publisher.Close()

	sweeper := service.NewAbsenceService(
		repository.NewSessionRepository(db),
		service.NewCacheService(cacheRepo, nil, cfg.Reports.CacheTTL, logr, cacheEnabled),
		publisher,
		nil,
		logr,
		service.AbsenceServiceConfig{},
	)

	result, err := sweeper.Sweep(ctx)
	if err != nil {
		logr.Fatal("absence sweep failed", zap.Error(err))
	}
	logr.Info("done", zap.Int("checked", result.Checked), zap.Int("marked", result.Marked))
}
