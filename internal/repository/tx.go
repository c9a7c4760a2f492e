package repository

import (
	"context"

	"gorm.io/gorm"
)

// Stores bundles the repositories bound to one storage scope, either the
// shared connection pool or a single transaction.
type Stores struct {
	Hospitals HospitalRepository
	Batches   BatchJobRepository
}

// TxManager runs a function against transaction-scoped repositories with
// commit on success and rollback on any error or panic.
type TxManager interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

type GormTxManager struct {
	db *gorm.DB
}

func NewGormTxManager(db *gorm.DB) *GormTxManager {
	return &GormTxManager{db: db}
}

func (m *GormTxManager) InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, Stores{
			Hospitals: NewGormHospitalRepo(tx),
			Batches:   NewGormBatchJobRepo(tx),
		})
	})
}
