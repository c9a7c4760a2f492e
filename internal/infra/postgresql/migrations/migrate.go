package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate applies all schema migrations in order. Safe to call on every
// startup; gormigrate skips migrations that already ran.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		createHospitalsTable(),
		createBatchJobsTable(),
	})

	return m.Migrate()
}
