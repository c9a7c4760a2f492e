package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/selimaydogdu/hospital-registry/internal/domain"
	"gorm.io/gorm"
)

type HospitalRepository interface {
	Create(ctx context.Context, h *domain.Hospital) error
	CreateInBatch(ctx context.Context, h *domain.Hospital) error
	GetByID(ctx context.Context, id int64) (*domain.Hospital, error)
	List(ctx context.Context) ([]domain.Hospital, error)
	ListByBatchID(ctx context.Context, batchID string) ([]domain.Hospital, error)
	ActivateByBatchID(ctx context.Context, batchID string) (int64, error)
	DeleteByBatchID(ctx context.Context, batchID string) (int64, error)
}

type GormHospitalRepo struct {
	db *gorm.DB
}

func NewGormHospitalRepo(db *gorm.DB) *GormHospitalRepo {
	return &GormHospitalRepo{db: db}
}

func (r *GormHospitalRepo) Create(ctx context.Context, h *domain.Hospital) error {
	model := hospitalModelFromDomain(h)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if h != nil {
		*h = *hospitalModelToDomain(model)
	}
	return nil
}

// CreateInBatch inserts one batch row guarded by a savepoint, so a failed
// insert does not poison the surrounding batch transaction. Only valid inside
// a transaction-scoped repository.
func (r *GormHospitalRepo) CreateInBatch(ctx context.Context, h *domain.Hospital) error {
	model := hospitalModelFromDomain(h)
	tx := r.db.WithContext(ctx)

	// Postgres allows re-establishing a savepoint with the same name, so one
	// name serves every row of the batch.
	const savepoint = "sp_bulk_row"
	if err := tx.SavePoint(savepoint).Error; err != nil {
		return err
	}
	if err := tx.Create(model).Error; err != nil {
		if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
			return fmt.Errorf("row insert failed (%v) and savepoint rollback failed: %w", err, rbErr)
		}
		return err
	}

	if h != nil {
		*h = *hospitalModelToDomain(model)
	}
	return nil
}

func (r *GormHospitalRepo) GetByID(ctx context.Context, id int64) (*domain.Hospital, error) {
	var model HospitalModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return hospitalModelToDomain(&model), nil
}

func (r *GormHospitalRepo) List(ctx context.Context) ([]domain.Hospital, error) {
	var models []HospitalModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return hospitalModelsToDomain(models), nil
}

func (r *GormHospitalRepo) ListByBatchID(ctx context.Context, batchID string) ([]domain.Hospital, error) {
	var models []HospitalModel
	err := r.db.WithContext(ctx).
		Where("creation_batch_id = ?", batchID).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return hospitalModelsToDomain(models), nil
}

func (r *GormHospitalRepo) ActivateByBatchID(ctx context.Context, batchID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&HospitalModel{}).
		Where("creation_batch_id = ?", batchID).
		Update("is_active", true)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *GormHospitalRepo) DeleteByBatchID(ctx context.Context, batchID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("creation_batch_id = ?", batchID).
		Delete(&HospitalModel{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func hospitalModelsToDomain(models []HospitalModel) []domain.Hospital {
	hospitals := make([]domain.Hospital, 0, len(models))
	for i := range models {
		hospitals = append(hospitals, *hospitalModelToDomain(&models[i]))
	}
	return hospitals
}
