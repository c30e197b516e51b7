// Package activity is the append-only audit sink. Writes are best-effort:
// a failed insert is logged and never fails the enclosing request.
package activity

import (
	"encoding/json"

	"collab-service/internal/model"
	"collab-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Record appends one activity row. changes may be nil.
func Record(db *gorm.DB, userID uint, entityType string, entityID uint, action string, changes map[string]interface{}) {
	var encoded string
	if changes != nil {
		if b, err := json.Marshal(changes); err == nil {
			encoded = string(b)
		}
	}

	entry := model.ActivityLog{
		UserID:     userID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Changes:    encoded,
	}
	if err := db.Create(&entry).Error; err != nil {
		logger.GetLogger().Error("Failed to write activity log",
			zap.String("entity_type", entityType),
			zap.Uint("entity_id", entityID),
			zap.String("action", action),
			zap.Error(err))
	}
}
