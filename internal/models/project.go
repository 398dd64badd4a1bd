package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a workspace for generated artifacts within an org.
type Project struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrgID       uuid.UUID      `gorm:"type:uuid;index;not null" json:"org_id" validate:"required"`
	Name        string         `gorm:"not null;index:idx_projects_org_name,unique" json:"name" validate:"required"`
	Description string         `gorm:"type:text" json:"description"`
	CreatedByID uuid.UUID      `gorm:"type:uuid;not null" json:"created_by_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
