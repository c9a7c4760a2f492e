package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/selimaydogdu/hospital-registry/internal/repository"
	"gorm.io/gorm"
)

func createHospitalsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_hospitals",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.HospitalModel{}); err != nil {
				return err
			}
			return tx.Exec(
				`CREATE INDEX IF NOT EXISTS idx_hospitals_creation_batch_id ON hospitals (creation_batch_id) WHERE creation_batch_id IS NOT NULL`,
			).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.HospitalModel{})
		},
	}
}
