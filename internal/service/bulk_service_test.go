package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/selimaydogdu/hospital-registry/internal/domain"
	"github.com/selimaydogdu/hospital-registry/internal/queue"
	"github.com/selimaydogdu/hospital-registry/internal/repository"
	"go.uber.org/zap"
)

func newBulkService(
	t *testing.T,
	batches *fakeBatchJobRepo,
	hospitals *fakeHospitalRepo,
	tx *fakeTxManager,
	publisher *fakePublisher,
) *BulkService {
	t.Helper()

	if tx == nil {
		tx = &fakeTxManager{stores: repository.Stores{Hospitals: hospitals, Batches: batches}}
	}

	svc, err := NewBulkService(batches, hospitals, tx, publisher, &fakeRateLimiter{}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewBulkService() error = %v", err)
	}
	return svc
}

func TestBulkServiceSubmitSuccess(t *testing.T) {
	t.Parallel()

	var createdJob *domain.BatchJob
	var publishedMsg *queue.BulkImportMessage
	jobCommittedBeforePublish := false

	batches := &fakeBatchJobRepo{
		createFn: func(ctx context.Context, j *domain.BatchJob) error {
			createdJob = j
			return nil
		},
	}
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.BulkImportMessage) error {
			jobCommittedBeforePublish = createdJob != nil
			if queueName != queue.BulkImportQueue {
				t.Fatalf("queue = %q, want %q", queueName, queue.BulkImportQueue)
			}
			publishedMsg = &msg
			return nil
		},
	}

	svc := newBulkService(t, batches, &fakeHospitalRepo{}, nil, publisher)

	csvText := "name,address,phone\nA,Addr A,1\nB,Addr B,2\n"
	result, err := svc.Submit(context.Background(), "hospitals.csv", []byte(csvText))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if result.BatchID == "" {
		t.Fatal("batch id should be assigned")
	}
	if result.Status != domain.JobStatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", result.Status)
	}
	if result.TotalHospitals != 2 {
		t.Fatalf("total = %d, want 2", result.TotalHospitals)
	}

	if createdJob == nil {
		t.Fatal("job should be persisted")
	}
	if createdJob.TotalHospitals != 2 || createdJob.ProcessedHospitals != 0 || createdJob.FailedHospitals != 0 {
		t.Fatalf("job counters = %d/%d/%d, want 2/0/0",
			createdJob.TotalHospitals, createdJob.ProcessedHospitals, createdJob.FailedHospitals)
	}

	if !jobCommittedBeforePublish {
		t.Fatal("job must be persisted before the enqueue call")
	}
	if publishedMsg == nil {
		t.Fatal("message should be published")
	}
	if publishedMsg.CSVText != csvText {
		t.Fatal("message must carry the original CSV text, not the parsed rows")
	}
	if publishedMsg.BatchID != result.BatchID {
		t.Fatalf("message batch id = %q, want %q", publishedMsg.BatchID, result.BatchID)
	}
}

func TestBulkServiceSubmitRejectsNonCSVFilename(t *testing.T) {
	t.Parallel()

	batches := &fakeBatchJobRepo{
		createFn: func(ctx context.Context, j *domain.BatchJob) error {
			t.Fatal("no job should be created for a rejected upload")
			return nil
		},
	}
	svc := newBulkService(t, batches, &fakeHospitalRepo{}, nil, &fakePublisher{})

	_, err := svc.Submit(context.Background(), "hospitals.txt", []byte("name,address\nA,Addr A\n"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Submit() error = %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), "Only CSV files are allowed") {
		t.Fatalf("error = %v, want extension message", err)
	}
}

func TestBulkServiceSubmitRejectsEmptyFile(t *testing.T) {
	t.Parallel()

	svc := newBulkService(t, &fakeBatchJobRepo{}, &fakeHospitalRepo{}, nil, &fakePublisher{})

	_, err := svc.Submit(context.Background(), "hospitals.csv", nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Submit() error = %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), "Uploaded CSV file is empty") {
		t.Fatalf("error = %v, want empty-file message", err)
	}
}

func TestBulkServiceSubmitRejectsValidationErrors(t *testing.T) {
	t.Parallel()

	svc := newBulkService(t, &fakeBatchJobRepo{}, &fakeHospitalRepo{}, nil, &fakePublisher{})

	_, err := svc.Submit(context.Background(), "hospitals.csv", []byte("name,address\nA,\n"))

	var verr *domain.ValidationErrors
	if !errors.As(err, &verr) {
		t.Fatalf("Submit() error = %v, want *ValidationErrors", err)
	}
	if verr.Message != "CSV validation failed" {
		t.Fatalf("message = %q", verr.Message)
	}
	if len(verr.Errors) != 1 || verr.Errors[0] != "Row 1: 'address' is required" {
		t.Fatalf("errors = %v", verr.Errors)
	}
}

func TestBulkServiceSubmitRejectsTooManyRows(t *testing.T) {
	t.Parallel()

	svc := newBulkService(t, &fakeBatchJobRepo{}, &fakeHospitalRepo{}, nil, &fakePublisher{})

	var b strings.Builder
	b.WriteString("name,address\n")
	for i := 0; i < 21; i++ {
		fmt.Fprintf(&b, "H%d,Addr %d\n", i, i)
	}

	_, err := svc.Submit(context.Background(), "hospitals.csv", []byte(b.String()))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Submit() error = %v, want ErrValidation", err)
	}
	if !strings.Contains(err.Error(), "Max 20 hospitals allowed") {
		t.Fatalf("error = %v, want row-cap message", err)
	}
}

func TestBulkServiceValidateOnlyDoesNotPersistOrEnqueue(t *testing.T) {
	t.Parallel()

	batches := &fakeBatchJobRepo{
		createFn: func(ctx context.Context, j *domain.BatchJob) error {
			t.Fatal("validate-only must not persist a job")
			return nil
		},
	}
	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.BulkImportMessage) error {
			t.Fatal("validate-only must not enqueue work")
			return nil
		},
	}
	svc := newBulkService(t, batches, &fakeHospitalRepo{}, nil, publisher)

	for i := 0; i < 3; i++ {
		count, err := svc.ValidateOnly(context.Background(), "hospitals.csv", []byte("name,address\nA,Addr A\nB,Addr B\n"))
		if err != nil {
			t.Fatalf("ValidateOnly() error = %v", err)
		}
		if count != 2 {
			t.Fatalf("count = %d, want 2", count)
		}
	}
}

func TestBulkServiceGetBatch(t *testing.T) {
	t.Parallel()

	job := &domain.BatchJob{BatchID: "b-1", TotalHospitals: 2, Status: domain.JobStatusCompleted}
	batchRef := "b-1"
	hospitals := []domain.Hospital{
		{ID: 1, Name: "A", Address: "Addr A", CreationBatchID: &batchRef},
		{ID: 2, Name: "B", Address: "Addr B", CreationBatchID: &batchRef},
	}

	svc := newBulkService(t,
		&fakeBatchJobRepo{
			getByBatchIDFn: func(ctx context.Context, batchID string) (*domain.BatchJob, error) {
				if batchID != "b-1" {
					return nil, domain.ErrNotFound
				}
				return job, nil
			},
		},
		&fakeHospitalRepo{
			listByBatchIDFn: func(ctx context.Context, batchID string) ([]domain.Hospital, error) {
				return hospitals, nil
			},
		},
		nil, &fakePublisher{})

	details, err := svc.GetBatch(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("GetBatch() error = %v", err)
	}
	if details.Job.BatchID != "b-1" || len(details.Hospitals) != 2 {
		t.Fatalf("details = %+v", details)
	}

	_, err = svc.GetBatch(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetBatch() error = %v, want ErrNotFound", err)
	}
}

func TestBulkServiceActivateExactlyOnce(t *testing.T) {
	t.Parallel()

	job := &domain.BatchJob{BatchID: "b-1", TotalHospitals: 1, Status: domain.JobStatusCompleted}
	var hospitalsActivated bool
	var savedJob *domain.BatchJob

	batches := &fakeBatchJobRepo{
		lockByBatchIDFn: func(ctx context.Context, batchID string) (*domain.BatchJob, error) {
			if batchID != "b-1" {
				return nil, domain.ErrNotFound
			}
			copied := *job
			return &copied, nil
		},
		updateFn: func(ctx context.Context, j *domain.BatchJob) error {
			savedJob = j
			*job = *j
			return nil
		},
	}
	hospitals := &fakeHospitalRepo{
		activateByBatchIDFn: func(ctx context.Context, batchID string) (int64, error) {
			hospitalsActivated = true
			return 1, nil
		},
	}

	svc := newBulkService(t, batches, hospitals, nil, &fakePublisher{})

	activated, err := svc.Activate(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if !activated.Outcome.Activated {
		t.Fatal("outcome should be marked activated")
	}
	if !hospitalsActivated {
		t.Fatal("linked hospitals should be bulk-activated")
	}
	if savedJob == nil || !savedJob.Outcome.Activated {
		t.Fatal("activated flag must be persisted")
	}

	_, err = svc.Activate(context.Background(), "b-1")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second Activate() error = %v, want ErrConflict", err)
	}

	_, err = svc.Activate(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Activate() unknown batch error = %v, want ErrNotFound", err)
	}
}

func TestBulkServiceDeleteBatch(t *testing.T) {
	t.Parallel()

	var hospitalsDeleted, jobDeleted bool

	batches := &fakeBatchJobRepo{
		getByBatchIDFn: func(ctx context.Context, batchID string) (*domain.BatchJob, error) {
			if batchID != "b-1" {
				return nil, domain.ErrNotFound
			}
			return &domain.BatchJob{BatchID: "b-1"}, nil
		},
		deleteFn: func(ctx context.Context, batchID string) error {
			if !hospitalsDeleted {
				t.Fatal("hospitals must be deleted before the job row")
			}
			jobDeleted = true
			return nil
		},
	}
	hospitals := &fakeHospitalRepo{
		deleteByBatchIDFn: func(ctx context.Context, batchID string) (int64, error) {
			hospitalsDeleted = true
			return 2, nil
		},
	}

	svc := newBulkService(t, batches, hospitals, nil, &fakePublisher{})

	if err := svc.DeleteBatch(context.Background(), "b-1"); err != nil {
		t.Fatalf("DeleteBatch() error = %v", err)
	}
	if !jobDeleted {
		t.Fatal("job row should be deleted")
	}

	err := svc.DeleteBatch(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("DeleteBatch() error = %v, want ErrNotFound", err)
	}
}

func TestBulkServiceSubmitPublishFailure(t *testing.T) {
	t.Parallel()

	publisher := &fakePublisher{
		publishFn: func(ctx context.Context, queueName string, msg queue.BulkImportMessage) error {
			return errors.New("broker down")
		},
	}
	svc := newBulkService(t, &fakeBatchJobRepo{}, &fakeHospitalRepo{}, nil, publisher)

	_, err := svc.Submit(context.Background(), "hospitals.csv", []byte("name,address\nA,Addr A\n"))
	if err == nil || !strings.Contains(err.Error(), "failed to enqueue bulk import") {
		t.Fatalf("Submit() error = %v, want enqueue failure", err)
	}
}
