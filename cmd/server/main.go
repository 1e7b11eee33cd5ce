package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"stockcount-backend/internal/apperr"
	"stockcount-backend/internal/audit"
	"stockcount-backend/internal/auth"
	"stockcount-backend/internal/config"
	"stockcount-backend/internal/database"
	"stockcount-backend/internal/inventory"
	"stockcount-backend/internal/models"
	"stockcount-backend/internal/scheduler"
	"stockcount-backend/internal/stockcount"
	"stockcount-backend/internal/store"
	"stockcount-backend/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	envFile := flag.String("env", "", "optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	warnings, err := cfg.Validate()
	if err != nil {
		baseLogger.Fatal("invalid configuration", zap.Error(err))
	}
	for _, w := range warnings {
		baseLogger.Warn(w)
	}

	db, err := database.Open(cfg.DatabaseDSN, logger.Named(baseLogger, "database"))
	if err != nil {
		baseLogger.Fatal("database", zap.Error(err))
	}

	st := store.NewGormStore(db)
	auditSvc := audit.NewService(db, audit.NewForwarder(cfg.AuditWebhookURL, 5*time.Second), logger.Named(baseLogger, "audit"))
	countSvc := stockcount.NewService(st, auditSvc, logger.Named(baseLogger, "stockcount"))
	sched := scheduler.NewScheduler(countSvc, cfg.SessionSweepCron, cfg.SessionIdleTimeout, logger.Named(baseLogger, "scheduler"))

	app := fiber.New(fiber.Config{
		ErrorHandler: apperr.ErrorHandler(logger.Named(baseLogger, "http")),
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(db))
	api.Post("/auth/login", auth.LoginHandler(db, cfg.JWTSecret))

	protected := api.Group("", auth.JWTMiddleware(cfg.JWTSecret))
	protected.Get("/auth/me", auth.MeHandler())
	protected.Post("/users", auth.RequireRole(models.RoleAdmin), auth.CreateUserHandler(db))

	stockcount.RegisterRoutes(protected, countSvc)

	// ledger and levels
	protected.Get("/inventory/levels", inventory.ListLevelsHandler(st))
	protected.Get("/inventory/items/barcode/:barcode", inventory.GetItemByBarcodeHandler(st))
	protected.Get("/stock-movements", inventory.ListMovementsHandler(st))

	protected.Get("/audit-logs", auth.RequireRole(models.RoleAdmin, models.RoleSupervisor), audit.ListAuditLogsHandler(auditSvc))

	if err := sched.Start(); err != nil {
		baseLogger.Fatal("scheduler", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		baseLogger.Info("server listening", zap.String("port", cfg.HTTPPort))
		if err := app.Listen(":" + cfg.HTTPPort); err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		baseLogger.Info("shutting down")

		sched.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		baseLogger.Error("server stopped with error", zap.Error(err))
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	baseLogger.Info("server stopped")
}
