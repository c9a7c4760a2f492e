package service

import (
	"context"

	"github.com/selimaydogdu/hospital-registry/internal/domain"
	"github.com/selimaydogdu/hospital-registry/internal/queue"
	"github.com/selimaydogdu/hospital-registry/internal/repository"
)

type fakeHospitalRepo struct {
	createFn            func(ctx context.Context, h *domain.Hospital) error
	createInBatchFn     func(ctx context.Context, h *domain.Hospital) error
	getByIDFn           func(ctx context.Context, id int64) (*domain.Hospital, error)
	listFn              func(ctx context.Context) ([]domain.Hospital, error)
	listByBatchIDFn     func(ctx context.Context, batchID string) ([]domain.Hospital, error)
	activateByBatchIDFn func(ctx context.Context, batchID string) (int64, error)
	deleteByBatchIDFn   func(ctx context.Context, batchID string) (int64, error)
}

func (f *fakeHospitalRepo) Create(ctx context.Context, h *domain.Hospital) error {
	if f.createFn != nil {
		return f.createFn(ctx, h)
	}
	return nil
}

func (f *fakeHospitalRepo) CreateInBatch(ctx context.Context, h *domain.Hospital) error {
	if f.createInBatchFn != nil {
		return f.createInBatchFn(ctx, h)
	}
	return nil
}

func (f *fakeHospitalRepo) GetByID(ctx context.Context, id int64) (*domain.Hospital, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeHospitalRepo) List(ctx context.Context) ([]domain.Hospital, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

func (f *fakeHospitalRepo) ListByBatchID(ctx context.Context, batchID string) ([]domain.Hospital, error) {
	if f.listByBatchIDFn != nil {
		return f.listByBatchIDFn(ctx, batchID)
	}
	return nil, nil
}

func (f *fakeHospitalRepo) ActivateByBatchID(ctx context.Context, batchID string) (int64, error) {
	if f.activateByBatchIDFn != nil {
		return f.activateByBatchIDFn(ctx, batchID)
	}
	return 0, nil
}

func (f *fakeHospitalRepo) DeleteByBatchID(ctx context.Context, batchID string) (int64, error) {
	if f.deleteByBatchIDFn != nil {
		return f.deleteByBatchIDFn(ctx, batchID)
	}
	return 0, nil
}

type fakeBatchJobRepo struct {
	createFn        func(ctx context.Context, j *domain.BatchJob) error
	getByBatchIDFn  func(ctx context.Context, batchID string) (*domain.BatchJob, error)
	lockByBatchIDFn func(ctx context.Context, batchID string) (*domain.BatchJob, error)
	updateFn        func(ctx context.Context, j *domain.BatchJob) error
	deleteFn        func(ctx context.Context, batchID string) error
}

func (f *fakeBatchJobRepo) Create(ctx context.Context, j *domain.BatchJob) error {
	if f.createFn != nil {
		return f.createFn(ctx, j)
	}
	return nil
}

func (f *fakeBatchJobRepo) GetByBatchID(ctx context.Context, batchID string) (*domain.BatchJob, error) {
	if f.getByBatchIDFn != nil {
		return f.getByBatchIDFn(ctx, batchID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBatchJobRepo) LockByBatchID(ctx context.Context, batchID string) (*domain.BatchJob, error) {
	if f.lockByBatchIDFn != nil {
		return f.lockByBatchIDFn(ctx, batchID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBatchJobRepo) Update(ctx context.Context, j *domain.BatchJob) error {
	if f.updateFn != nil {
		return f.updateFn(ctx, j)
	}
	return nil
}

func (f *fakeBatchJobRepo) Delete(ctx context.Context, batchID string) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, batchID)
	}
	return nil
}

// fakeTxManager runs the callback against the given stores without a real
// transaction.
type fakeTxManager struct {
	stores repository.Stores
	calls  int
}

func (f *fakeTxManager) InTx(ctx context.Context, fn func(ctx context.Context, s repository.Stores) error) error {
	f.calls++
	return fn(ctx, f.stores)
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.BulkImportMessage) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.BulkImportMessage) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, key string) (bool, error)
	waitFn  func(ctx context.Context, key string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, key)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, key string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, key)
	}
	return nil
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	return nil
}

func (f *fakeConsumer) Close() error { return nil }
