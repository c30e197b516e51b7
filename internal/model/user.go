package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents the user model stored in the database. Uniqueness of
// username and email only holds among non-deleted rows, so a deleted
// user's name can be registered again.
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Username  string         `json:"username" gorm:"type:varchar(100);uniqueIndex:idx_users_username,where:deleted_at IS NULL"`
	Email     string         `json:"email" gorm:"type:varchar(100);uniqueIndex:idx_users_email,where:deleted_at IS NULL"`
	Password  string         `json:"-" gorm:"type:varchar(255)"`
	Active    bool           `json:"active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	OwnedProjects []Project    `json:"owned_projects,omitempty" gorm:"foreignKey:OwnerID"`
	Memberships   []Membership `json:"memberships,omitempty" gorm:"foreignKey:UserID"`
}
