package model

import "time"

// ActivityLog is an append-only audit record. Rows are written by the
// activity sink and never updated or deleted.
type ActivityLog struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"index;not null"`
	EntityType string    `json:"entity_type" gorm:"type:varchar(50);not null"`
	EntityID   uint      `json:"entity_id" gorm:"not null"`
	Action     string    `json:"action" gorm:"type:varchar(50);not null"`
	Changes    string    `json:"changes" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
}
