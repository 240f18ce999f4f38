package db

import (
	"gorm.io/gorm"

	"github.com/lromero/receipt-bot/internal/store"
)

// Migrate runs GORM auto-migrations for all persisted models.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(&store.Receipt{})
}
