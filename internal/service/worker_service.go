package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/selimaydogdu/hospital-registry/internal/csvimport"
	"github.com/selimaydogdu/hospital-registry/internal/domain"
	"github.com/selimaydogdu/hospital-registry/internal/observability"
	"github.com/selimaydogdu/hospital-registry/internal/queue"
	"github.com/selimaydogdu/hospital-registry/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minWorkerConcurrency = 1

// WorkerService consumes bulk-import messages and turns CSV rows into
// hospital records. One message is one batch; rows inside a batch are
// processed sequentially, batches run in parallel across consumers.
type WorkerService struct {
	tx          repository.TxManager
	consumer    queue.Consumer
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
}

func NewWorkerService(
	tx repository.TxManager,
	consumer queue.Consumer,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx manager is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		tx:          tx,
		consumer:    consumer,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start consumes the bulk-import queue until context cancellation.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.BulkImportQueue),
			)

			err := s.consumer.Consume(groupCtx, queue.BulkImportQueue, s.ProcessBatch)
			if err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

// ProcessBatch handles one bulk-import message. The whole batch runs inside a
// single transaction: counters, per-row inserts, and the terminal status
// commit together, so a failed attempt leaves no partial writes and a queue
// retry starts from a clean slate. Mid-batch polling therefore observes zero
// progress until the batch finishes.
func (s *WorkerService) ProcessBatch(ctx context.Context, msg queue.BulkImportMessage) error {
	start := s.now()

	ctx = observability.WithCorrelationID(ctx, msg.BatchID)
	logger := observability.WithContextLogger(s.logger, ctx)

	if s.metrics != nil {
		s.metrics.IncWorkerInFlight()
		defer s.metrics.DecWorkerInFlight()
	}

	var finalStatus domain.JobStatus

	err := s.tx.InTx(ctx, func(ctx context.Context, st repository.Stores) error {
		job, err := st.Batches.GetByBatchID(ctx, msg.BatchID)
		if errors.Is(err, domain.ErrNotFound) {
			// The job was deleted before this (possibly retried) message ran.
			logger.Warn("batch job not found, skipping",
				zap.String("batchId", msg.BatchID),
			)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load batch job: %w", err)
		}

		if job.Status.IsTerminal() {
			// Redelivery after a successful commit; the batch is already done.
			logger.Warn("batch job already finalized, skipping",
				zap.String("batchId", msg.BatchID),
				zap.String("status", job.Status.String()),
			)
			return nil
		}

		rows, _ := csvimport.Validate(msg.CSVText)

		processed := 0
		failed := 0
		for _, row := range rows {
			key := row.DisplayKey()

			if row.Name == "" || row.Address == "" {
				failed++
				job.Outcome.SetRow(key, domain.RowFailure(fmt.Sprintf(
					"Missing required fields. Name: %s, Address: %s", row.Name, row.Address,
				)))
				if s.metrics != nil {
					s.metrics.IncRowFailed()
				}
				job.ProcessedHospitals = processed
				job.FailedHospitals = failed
				continue
			}

			hospital := &domain.Hospital{
				Name:            row.Name,
				Address:         row.Address,
				Phone:           optionalString(row.Phone),
				CreationBatchID: &msg.BatchID,
				IsActive:        false,
			}

			if err := st.Hospitals.CreateInBatch(ctx, hospital); err != nil {
				failed++
				job.Outcome.SetRow(key, domain.RowFailure(err.Error()))
				if s.metrics != nil {
					s.metrics.IncRowFailed()
				}
				logger.Warn("row insert failed",
					zap.String("batchId", msg.BatchID),
					zap.String("rowKey", key),
					zap.Error(err),
				)
			} else {
				processed++
				job.Outcome.SetRow(key, domain.RowSuccess(hospital.ID))
				if s.metrics != nil {
					s.metrics.IncRowProcessed()
				}
			}

			job.ProcessedHospitals = processed
			job.FailedHospitals = failed
		}

		job.Status = domain.JobStatusCompleted
		if failed > 0 {
			job.Status = domain.JobStatusCompletedWithErrors
		}
		duration := roundSeconds(s.now().Sub(start))
		job.ProcessingTimeSeconds = &duration

		if err := st.Batches.Update(ctx, job); err != nil {
			return fmt.Errorf("failed to finalize batch job: %w", err)
		}

		finalStatus = job.Status

		logger.Info("batch processed",
			zap.String("batchId", msg.BatchID),
			zap.String("status", job.Status.String()),
			zap.Int("processed", processed),
			zap.Int("failed", failed),
			zap.Float64("seconds", duration),
		)
		return nil
	})
	if err != nil {
		return err
	}

	if s.metrics != nil && finalStatus != "" {
		s.metrics.IncBatchCompleted(finalStatus.String())
		s.metrics.ObserveBatchDuration(s.now().Sub(start))
	}

	return nil
}

// roundSeconds reports elapsed wall-clock seconds rounded to 2 decimals.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
