package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/selimaydogdu/hospital-registry/internal/csvimport"
	"github.com/selimaydogdu/hospital-registry/internal/domain"
	"github.com/selimaydogdu/hospital-registry/internal/queue"
	"github.com/selimaydogdu/hospital-registry/internal/ratelimit"
	"github.com/selimaydogdu/hospital-registry/internal/repository"
	"go.uber.org/zap"
)

const bulkRateLimitKey = "bulk"

// BulkService owns the bulk-import lifecycle on the API side: submission,
// dry-run validation, batch queries, activation, and deletion.
type BulkService struct {
	batches     repository.BatchJobRepository
	hospitals   repository.HospitalRepository
	tx          repository.TxManager
	publisher   queue.Publisher
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
}

// SubmitResult is the immediate response to a bulk upload; processing
// continues asynchronously.
type SubmitResult struct {
	BatchID        string
	Status         domain.JobStatus
	TotalHospitals int
	Message        string
}

// BatchDetails pairs a job with the hospitals linked to its batch id.
type BatchDetails struct {
	Job       *domain.BatchJob
	Hospitals []domain.Hospital
}

func NewBulkService(
	batches repository.BatchJobRepository,
	hospitals repository.HospitalRepository,
	tx repository.TxManager,
	publisher queue.Publisher,
	rateLimiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*BulkService, error) {
	if batches == nil {
		return nil, fmt.Errorf("batch job repository is required")
	}
	if hospitals == nil {
		return nil, fmt.Errorf("hospital repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx manager is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BulkService{
		batches:     batches,
		hospitals:   hospitals,
		tx:          tx,
		publisher:   publisher,
		rateLimiter: rateLimiter,
		logger:      logger,
	}, nil
}

// Submit validates the upload, persists a new batch job, and enqueues the
// processing message. The job row is committed before the publish call so a
// worker picking the message up immediately always finds it.
func (s *BulkService) Submit(ctx context.Context, filename string, content []byte) (*SubmitResult, error) {
	csvText, rows, err := s.checkUpload(ctx, filename, content, true)
	if err != nil {
		return nil, err
	}

	job := &domain.BatchJob{
		BatchID:        uuid.NewString(),
		TotalHospitals: len(rows),
		Status:         domain.JobStatusInProgress,
	}
	if err := s.batches.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create batch job: %w", err)
	}

	msg := queue.BulkImportMessage{BatchID: job.BatchID, CSVText: csvText}
	if err := s.publisher.Publish(ctx, queue.BulkImportQueue, msg); err != nil {
		// The job row is already durable; it stays IN_PROGRESS with no message
		// behind it, the same stuck state as an abandoned worker task.
		s.logger.Error("failed to publish bulk import message",
			zap.String("batchId", job.BatchID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to enqueue bulk import: %w", err)
	}

	s.logger.Info("bulk import submitted",
		zap.String("batchId", job.BatchID),
		zap.Int("totalHospitals", job.TotalHospitals),
	)

	return &SubmitResult{
		BatchID:        job.BatchID,
		Status:         job.Status,
		TotalHospitals: job.TotalHospitals,
		Message:        "Bulk processing started. Use batch_id to track progress.",
	}, nil
}

// ValidateOnly runs the same upload checks as Submit without persisting a job
// or enqueueing work. It returns the number of parsed data rows.
func (s *BulkService) ValidateOnly(ctx context.Context, filename string, content []byte) (int, error) {
	_, rows, err := s.checkUpload(ctx, filename, content, false)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *BulkService) checkUpload(
	ctx context.Context,
	filename string,
	content []byte,
	limit bool,
) (string, []csvimport.Row, error) {
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(filename)), ".csv") {
		return "", nil, fmt.Errorf("%w: Only CSV files are allowed", domain.ErrValidation)
	}
	if len(content) == 0 {
		return "", nil, fmt.Errorf("%w: Uploaded CSV file is empty", domain.ErrValidation)
	}

	if limit && s.rateLimiter != nil {
		if err := s.rateLimiter.Wait(ctx, bulkRateLimitKey); err != nil {
			return "", nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	csvText := string(content)
	rows, errs := csvimport.Validate(csvText)
	if len(errs) > 0 {
		return "", nil, domain.NewValidationErrors("CSV validation failed", errs)
	}
	if len(rows) > csvimport.MaxRows {
		return "", nil, fmt.Errorf("%w: Max %d hospitals allowed", domain.ErrValidation, csvimport.MaxRows)
	}

	return csvText, rows, nil
}

func (s *BulkService) GetBatch(ctx context.Context, batchID string) (*BatchDetails, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	job, err := s.batches.GetByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	hospitals, err := s.hospitals.ListByBatchID(ctx, batchID)
	if err != nil {
		return nil, err
	}

	return &BatchDetails{Job: job, Hospitals: hospitals}, nil
}

// Activate flips every hospital of the batch to active, exactly once. The job
// row is locked for the duration of the transaction so concurrent activation
// calls serialize instead of both passing the not-yet-activated check.
func (s *BulkService) Activate(ctx context.Context, batchID string) (*domain.BatchJob, error) {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	var activated *domain.BatchJob
	err := s.tx.InTx(ctx, func(ctx context.Context, st repository.Stores) error {
		job, err := st.Batches.LockByBatchID(ctx, batchID)
		if err != nil {
			return err
		}
		if job.Outcome.Activated {
			return fmt.Errorf("%w: Batch already activated", domain.ErrConflict)
		}

		job.Outcome.Activated = true
		if _, err := st.Hospitals.ActivateByBatchID(ctx, batchID); err != nil {
			return err
		}
		if err := st.Batches.Update(ctx, job); err != nil {
			return err
		}

		activated = job
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch activated", zap.String("batchId", batchID))
	return activated, nil
}

// DeleteBatch removes the batch's hospitals and then the job row itself.
// Irreversible; there is no soft delete.
func (s *BulkService) DeleteBatch(ctx context.Context, batchID string) error {
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return fmt.Errorf("%w: batch id is required", domain.ErrValidation)
	}

	err := s.tx.InTx(ctx, func(ctx context.Context, st repository.Stores) error {
		if _, err := st.Batches.GetByBatchID(ctx, batchID); err != nil {
			return err
		}
		if _, err := st.Hospitals.DeleteByBatchID(ctx, batchID); err != nil {
			return err
		}
		return st.Batches.Delete(ctx, batchID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("batch deleted", zap.String("batchId", batchID))
	return nil
}
