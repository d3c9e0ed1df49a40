package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Application roles. Every authenticated identity gets exactly one profile,
// provisioned by the identity-created hook with RoleClient.
const (
	RoleAdmin  = "admin"
	RoleMaker  = "maker"
	RoleClient = "client"
)

// UserProfile is the application-level identity record. UserID references the
// external identity (users table) and is unique so the provisioning hook
// cannot create a second profile for the same identity.
type UserProfile struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Name   string `gorm:"not null" json:"name"`
	Email  string `gorm:"not null" json:"email"`
	Role   string `gorm:"default:'client';not null" json:"role"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook to set UUID before creating a UserProfile
func (profile *UserProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	return
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
