package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/selimaydogdu/hospital-registry/internal/config"
	"github.com/selimaydogdu/hospital-registry/internal/handler"
	"github.com/selimaydogdu/hospital-registry/internal/infra/postgresql"
	"github.com/selimaydogdu/hospital-registry/internal/infra/postgresql/migrations"
	infraredis "github.com/selimaydogdu/hospital-registry/internal/infra/redis"
	"github.com/selimaydogdu/hospital-registry/internal/observability"
	"github.com/selimaydogdu/hospital-registry/internal/queue"
	"github.com/selimaydogdu/hospital-registry/internal/repository"
	"github.com/selimaydogdu/hospital-registry/internal/service"
	"github.com/selimaydogdu/hospital-registry/internal/transport"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
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

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.BulkRateLimitPerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer mq.Close()

	publisher := queue.NewRabbitMQPublisher(mq)
	defer publisher.Close()

	hospitalRepo := repository.NewGormHospitalRepo(db)
	batchRepo := repository.NewGormBatchJobRepo(db)
	txManager := repository.NewGormTxManager(db)

	hospitalService, err := service.NewHospitalService(hospitalRepo, logger)
	if err != nil {
		logger.Fatal("hospital service initialization failed", zap.Error(err))
	}

	bulkService, err := service.NewBulkService(batchRepo, hospitalRepo, txManager, publisher, rateLimiter, logger)
	if err != nil {
		logger.Fatal("bulk service initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:      "hospital-registry",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterHospitalRoutes(app, hospitalService, bulkService); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down api")
		_ = app.Shutdown()
	}()

	logger.Info("hospital-registry api started", zap.Int("port", cfg.APIPort))
	if err := app.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("api server stopped", zap.Error(err))
	}
}
