package db

import (
	"fmt"

	types "github.com/yungbote/devjourney-backend/internal/domain/development"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// Sessions, responses and assessments share one document table.
		&types.StoredRecord{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
