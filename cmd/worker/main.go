package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/selimaydogdu/hospital-registry/internal/config"
	"github.com/selimaydogdu/hospital-registry/internal/infra/postgresql"
	"github.com/selimaydogdu/hospital-registry/internal/infra/postgresql/migrations"
	"github.com/selimaydogdu/hospital-registry/internal/observability"
	"github.com/selimaydogdu/hospital-registry/internal/queue"
	"github.com/selimaydogdu/hospital-registry/internal/repository"
	"github.com/selimaydogdu/hospital-registry/internal/service"
	"go.uber.org/zap"
)

const (
	workerMetricsAddr     = ":9090"
	shutdownDrainDuration = 5 * time.Second
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

	mq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatal("rabbitmq initialization failed", zap.Error(err))
	}
	defer mq.Close()

	consumer := queue.NewRabbitMQConsumer(mq, cfg.WorkerConcurrency, logger)
	defer consumer.Close()

	txManager := repository.NewGormTxManager(db)

	worker, err := service.NewWorkerService(txManager, consumer, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Fatal("worker initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	worker.SetMetrics(metrics)

	metricsServer := &http.Server{
		Addr:    workerMetricsAddr,
		Handler: metrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("hospital-registry worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.String("queue", queue.BulkImportQueue),
	)

	if err := worker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("worker stopped", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDrainDuration)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("worker shut down cleanly")
}
