package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formpipe/formpipe/internal/config"
	"github.com/formpipe/formpipe/internal/delivery"
	"github.com/formpipe/formpipe/internal/handler"
	"github.com/formpipe/formpipe/internal/infra/postgresql"
	"github.com/formpipe/formpipe/internal/infra/postgresql/migrations"
	infraredis "github.com/formpipe/formpipe/internal/infra/redis"
	"github.com/formpipe/formpipe/internal/observability"
	"github.com/formpipe/formpipe/internal/repository"
	"github.com/formpipe/formpipe/internal/service"
	"github.com/formpipe/formpipe/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.DeliveryRatePerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	client := delivery.NewHTTPClient(time.Duration(cfg.DeliveryTimeoutSeconds) * time.Second)

	notificationRepo := repository.NewGormNotificationRepo(db)
	tenantRepo := repository.NewGormTenantRepo(db)
	responseRepo := repository.NewGormResponseRepo(db)

	enqueueSvc, err := service.NewEnqueueService(notificationRepo, tenantRepo, logger)
	if err != nil {
		logger.Fatal("enqueue service initialization failed", zap.Error(err))
	}
	enqueueSvc.SetMetrics(metrics)

	dispatchSvc, err := service.NewDispatchService(
		notificationRepo,
		client,
		rateLimiter,
		cfg.DispatchBatchSize,
		cfg.DispatchMaxAttempts,
		logger,
	)
	if err != nil {
		logger.Fatal("dispatch service initialization failed", zap.Error(err))
	}
	dispatchSvc.SetMetrics(metrics)

	relaySvc, err := service.NewRelayService(tenantRepo, client, rateLimiter, logger)
	if err != nil {
		logger.Fatal("relay service initialization failed", zap.Error(err))
	}

	responseSvc, err := service.NewResponseService(responseRepo, tenantRepo, enqueueSvc, logger)
	if err != nil {
		logger.Fatal("response service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "formpipe",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterResponseRoutes(app, responseSvc); err != nil {
		logger.Fatal("response routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterDispatchRoutes(app, dispatchSvc); err != nil {
		logger.Fatal("dispatch routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterRelayRoutes(app, relaySvc); err != nil {
		logger.Fatal("relay routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterNotificationRoutes(app, notificationRepo); err != nil {
		logger.Fatal("notification routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DispatchIntervalSeconds > 0 {
		poller, err := service.NewPoller(
			dispatchSvc,
			time.Duration(cfg.DispatchIntervalSeconds)*time.Second,
			logger,
		)
		if err != nil {
			logger.Fatal("poller initialization failed", zap.Error(err))
		}

		go func() {
			if err := poller.Start(ctx); err != nil {
				logger.Error("poller stopped with error", zap.Error(err))
			}
		}()
		logger.Info("dispatch poller enabled", zap.Int("intervalSeconds", cfg.DispatchIntervalSeconds))
	}

	go func() {
		logger.Info("formpipe api started", zap.Int("port", cfg.APIPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
