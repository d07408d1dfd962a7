package db

import (
	"fmt"

	"github.com/meinhoongagan/referencias-locales/models"
	"gorm.io/gorm"
)

// Migrate runs AutoMigrate for every model. Only called when AUTO_MIGRATE is set.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
