package model

import (
	"time"

	"gorm.io/gorm"
)

// Project represents a project owned by a single user. Teams and
// memberships hang off the project and are removed with it.
type Project struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(100);not null"`
	Description string         `json:"description" gorm:"type:text"`
	OwnerID     uint           `json:"owner_id" gorm:"index;not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Owner       User         `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Teams       []Team       `json:"teams,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Tasks       []Task       `json:"tasks,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Memberships []Membership `json:"memberships,omitempty" gorm:"polymorphic:Scope"`
}
