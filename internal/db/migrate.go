package db

import (
	"fmt"

	"github.com/zulandar/folio/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model, parents before children.
func AllModels() []interface{} {
	return []interface{}{
		&models.Resume{},
		&models.Project{},
		&models.Experience{},
		&models.Artifact{},
		&models.ResumeProject{},
		&models.Message{},
		&models.Interest{},
		&models.Stage{},
		&models.Ticket{},
		&models.Upload{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// DropAll drops every table, children first.
func DropAll(db *gorm.DB) error {
	all := AllModels()
	for i := len(all) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(all[i]); err != nil {
			return fmt.Errorf("db: drop %T: %w", all[i], err)
		}
	}
	return nil
}
