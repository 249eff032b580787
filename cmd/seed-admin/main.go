package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/trainersamay-api/internal/repository"
	"github.com/noah-isme/trainersamay-api/internal/service"
	"github.com/noah-isme/trainersamay-api/pkg/config"
	"github.com/noah-isme/trainersamay-api/pkg/database"
	"github.com/noah-isme/trainersamay-api/pkg/logger"
)

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	repo := repository.NewUserRepository(db)
	users := service.NewUserService(repo, repository.NewAuditRepository(db), service.NewValidator(), logr)

	admin, created, err := users.EnsureAdmin(ctx, cfg.SeedAdmin)
	if err != nil {
		logr.Fatal("failed to seed admin", zap.Error(err))
	}
	if !created {
		logr.Info("admin already present, nothing to do")
		return
	}
	logr.Info("admin created", zap.String("id", admin.ID), zap.String("email", admin.Email))
}
