package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/selimaydogdu/hospital-registry/internal/repository"
	"gorm.io/gorm"
)

func createBatchJobsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_batch_jobs",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.BatchJobModel{}); err != nil {
				return err
			}
			return tx.Exec(
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_batch_jobs_batch_id ON batch_jobs (batch_id)`,
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BatchJobModel{})
		},
	}
}
