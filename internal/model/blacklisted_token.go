package model

import "time"

// BlacklistedToken records a revoked token string. A matching row
// invalidates the token regardless of its signature or expiry.
type BlacklistedToken struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Token     string    `json:"token" gorm:"type:varchar(512);index;not null"`
	CreatedAt time.Time `json:"created_at"`
}
