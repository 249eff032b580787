package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/trainersamay-api/api/swagger"
	"github.com/noah-isme/trainersamay-api/internal/events"
	"github.com/noah-isme/trainersamay-api/internal/handler"
	"github.com/noah-isme/trainersamay-api/internal/middleware"
	"github.com/noah-isme/trainersamay-api/internal/repository"
	"github.com/noah-isme/trainersamay-api/internal/routes"
	"github.com/noah-isme/trainersamay-api/internal/service"
	"github.com/noah-isme/trainersamay-api/pkg/cache"
	"github.com/noah-isme/trainersamay-api/pkg/config"
	"github.com/noah-isme/trainersamay-api/pkg/database"
	"github.com/noah-isme/trainersamay-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/trainersamay-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/trainersamay-api/pkg/middleware/requestid"
)

// @title TrainerSamay API
// @version 1.0.0
// @description Trainer scheduling, availability and attendance reporting
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Reports.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, report cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
		}
	}

	publisher, err := events.New(cfg.Events, logr)
	if err != nil {
		logr.Warn("nats unavailable, session events disabled", zap.Error(err))
		publisher = events.NoopPublisher{}
	}
	defer publisher.Close()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, "trainersamay")

	validate := service.NewValidator()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Reports.CacheTTL, logr, redisClient != nil)
	schedulingOpts := service.SchedulingOptions{
		Location:           cfg.Scheduling.Location(),
		EnforceWindow:      cfg.Scheduling.EnforceWindow,
		MaxRecurrenceWeeks: cfg.Scheduling.MaxRecurrenceWeeks,
	}

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	userSvc := service.NewUserService(userRepo, auditRepo, validate, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, userRepo, sessionRepo, auditRepo, validate, logr, schedulingOpts)
	sessionSvc := service.NewSessionService(service.SessionServiceParams{
		Sessions:     sessionRepo,
		Availability: availabilityRepo,
		Users:        userRepo,
		Cache:        cacheSvc,
		Events:       publisher,
		Metrics:      metricsSvc,
		Audit:        auditRepo,
		Validator:    validate,
		Logger:       logr,
		Options:      schedulingOpts,
	})
	reportSvc := service.NewReportService(sessionRepo, userRepo, cacheSvc, logr, service.ReportServiceConfig{
		CacheTTL: cfg.Reports.CacheTTL,
		Location: schedulingOpts.Location,
	})

	if cfg.Absence.Enabled {
		sweeper := service.NewAbsenceService(sessionRepo, cacheSvc, publisher, metricsSvc, logr, service.AbsenceServiceConfig{
			Interval: cfg.Absence.Interval,
			Workers:  cfg.Absence.Workers,
			Retries:  cfg.Absence.Retries,
		})
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	readiness := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		readiness["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	routes.Register(r, cfg.APIPrefix, routes.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Users:        handler.NewUserHandler(userSvc),
		Availability: handler.NewAvailabilityHandler(availabilitySvc),
		Sessions:     handler.NewSessionHandler(sessionSvc),
		Reports:      handler.NewReportHandler(reportSvc),
		Metrics:      handler.NewMetricsHandler(metricsSvc, readiness),
	}, routes.Dependencies{Tokens: authSvc, Audit: auditRepo, Logger: logr})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
