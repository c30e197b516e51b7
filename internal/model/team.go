package model

import (
	"time"

	"gorm.io/gorm"
)

// Team represents a team inside a project. Every team belongs to exactly
// one project; team memberships are authorized against the enclosing
// project's owner and admins.
type Team struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	ProjectID uint           `json:"project_id" gorm:"index;not null"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Project     Project      `json:"project,omitempty" gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE"`
	Tasks       []Task       `json:"tasks,omitempty" gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	Memberships []Membership `json:"memberships,omitempty" gorm:"polymorphic:Scope"`
}
