package main

import (
	"gorm.io/gorm"

	"github.com/specforge/engine/internal/models"
)

// registerModels returns all models that need migration
func registerModels() []interface{} {
	return []interface{}{
		// Accounts & tenancy
		&models.User{},
		&models.Org{},
		&models.OrgMember{},

		// Projects & artifacts
		&models.Project{},
		&models.Artifact{},
		&models.ArtifactVersion{},

		// Generation & review
		&models.LLMRun{},
		&models.ReviewItem{},

		// Exports
		&models.ExportFile{},
	}
}

// runMigrations executes all database migrations
func runMigrations(db *gorm.DB) error {
	if err := enableUUIDExtension(db); err != nil {
		return err
	}

	if err := db.AutoMigrate(registerModels()...); err != nil {
		return err
	}

	return runCustomMigrations(db)
}

// runCustomMigrations handles schema changes AutoMigrate can't handle
func runCustomMigrations(db *gorm.DB) error {
	migrations := []func(*gorm.DB) error{
		addReviewQueueIndex,
		addExportStatusIndex,
	}

	for _, migration := range migrations {
		if err := migration(db); err != nil {
			return err
		}
	}

	return nil
}

// enableUUIDExtension ensures UUID generation is available
func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error
}

// addReviewQueueIndex speeds up the pending-reviews listing per project
func addReviewQueueIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_review_items_project_status
		ON review_items(project_id, status)
	`).Error
}

// addExportStatusIndex speeds up export listings and worker status sweeps
func addExportStatusIndex(db *gorm.DB) error {
	return db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_export_files_project_status
		ON export_files(project_id, status)
	`).Error
}
