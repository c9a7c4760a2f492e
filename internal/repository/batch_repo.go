package repository

import (
	"context"
	"errors"

	"github.com/selimaydogdu/hospital-registry/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BatchJobRepository interface {
	Create(ctx context.Context, j *domain.BatchJob) error
	GetByBatchID(ctx context.Context, batchID string) (*domain.BatchJob, error)
	// LockByBatchID fetches the job row with SELECT ... FOR UPDATE, serializing
	// concurrent read-modify-write sequences on the same batch. Only meaningful
	// inside a transaction-scoped repository.
	LockByBatchID(ctx context.Context, batchID string) (*domain.BatchJob, error)
	Update(ctx context.Context, j *domain.BatchJob) error
	Delete(ctx context.Context, batchID string) error
}

type GormBatchJobRepo struct {
	db *gorm.DB
}

func NewGormBatchJobRepo(db *gorm.DB) *GormBatchJobRepo {
	return &GormBatchJobRepo{db: db}
}

func (r *GormBatchJobRepo) Create(ctx context.Context, j *domain.BatchJob) error {
	model, err := batchJobModelFromDomain(j)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if j != nil {
		created, err := batchJobModelToDomain(model)
		if err != nil {
			return err
		}
		*j = *created
	}
	return nil
}

func (r *GormBatchJobRepo) GetByBatchID(ctx context.Context, batchID string) (*domain.BatchJob, error) {
	var model BatchJobModel
	err := r.db.WithContext(ctx).First(&model, "batch_id = ?", batchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return batchJobModelToDomain(&model)
}

func (r *GormBatchJobRepo) LockByBatchID(ctx context.Context, batchID string) (*domain.BatchJob, error) {
	var model BatchJobModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "batch_id = ?", batchID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return batchJobModelToDomain(&model)
}

func (r *GormBatchJobRepo) Update(ctx context.Context, j *domain.BatchJob) error {
	model, err := batchJobModelFromDomain(j)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&BatchJobModel{}).
		Where("batch_id = ?", model.BatchID).
		Updates(map[string]any{
			"processed_hospitals":     model.ProcessedHospitals,
			"failed_hospitals":        model.FailedHospitals,
			"status":                  model.Status,
			"processing_time_seconds": model.ProcessingTimeSeconds,
			"sys_custom_fields":       model.Outcome,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormBatchJobRepo) Delete(ctx context.Context, batchID string) error {
	result := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Delete(&BatchJobModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
