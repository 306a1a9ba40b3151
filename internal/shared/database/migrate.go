package database

import (
	"raffle/internal/sales"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&sales.Sale{}); err != nil {
		return err
	}
	return MigrateConstraints(db)
}
