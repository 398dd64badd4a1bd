package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Membership roles within an organization.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Org is a tenant boundary; every project and its artifacts live inside one org.
type Org struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name      string         `gorm:"not null" json:"name" validate:"required"`
	Slug      string         `gorm:"uniqueIndex;not null" json:"slug" validate:"required"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// OrgMember links a user to an org with a role.
type OrgMember struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	OrgID     uuid.UUID `gorm:"type:uuid;not null;index:idx_org_members_org_user,unique" json:"org_id" validate:"required"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index:idx_org_members_org_user,unique" json:"user_id" validate:"required"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role" validate:"required,oneof=OWNER ADMIN MEMBER"`
	CreatedAt time.Time `json:"created_at"`
}
