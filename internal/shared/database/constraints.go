package database

import (
	"gorm.io/gorm"
)

// MigrateConstraints adds the constraints AutoMigrate cannot express
func MigrateConstraints(db *gorm.DB) error {
	// One ledger row per processor payment; failed attempts have no id yet
	err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_sales_payment_id_unique
		ON sales (payment_id)
		WHERE payment_id <> '';
	`).Error
	if err != nil {
		return err
	}

	// Reconciliation looks up open and conflicting rows
	err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sales_status_created_at
		ON sales (status, created_at DESC);
	`).Error
	if err != nil {
		return err
	}

	return nil
}
