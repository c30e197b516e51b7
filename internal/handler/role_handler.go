package handler

import (
	"net/http"
	"time"

	"collab-service/internal/model"
	"collab-service/pkg/database"
	"collab-service/pkg/logger"
	"collab-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateRole creates a role, or extends an existing one with additional
// permissions.
func CreateRole(c echo.Context) error {
	log := logger.FromEcho(c)

	var req struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		PermissionIDs []uint `json:"permission_ids"`
	}
	if err := c.Bind(&req); err != nil || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	db := database.GetDB()
	defer prometheus.TrackDBOperation("insert")(time.Now())

	var role model.Role
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(model.Role{Name: req.Name}).
			Attrs(model.Role{Description: req.Description}).
			FirstOrCreate(&role).Error; err != nil {
			return err
		}
		if len(req.PermissionIDs) == 0 {
			return nil
		}
		var perms []model.Permission
		if err := tx.Where("id IN ?", req.PermissionIDs).Find(&perms).Error; err != nil {
			return err
		}
		return tx.Model(&role).Association("Permissions").Append(perms)
	})
	if err != nil {
		log.Error("Failed to create role", zap.String("name", req.Name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role creation failed"})
	}

	log.Info("Role created", zap.String("name", role.Name), zap.Uint("id", role.ID))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Role created",
		"role_id": role.ID,
	})
}

// ListRoles returns all roles with their permissions
func ListRoles(c echo.Context) error {
	log := logger.FromEcho(c)
	defer prometheus.TrackDBOperation("query")(time.Now())

	var roles []model.Role
	if err := database.GetDB().Preload("Permissions").Find(&roles).Error; err != nil {
		log.Error("Failed to list roles", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve roles"})
	}
	return c.JSON(http.StatusOK, roles)
}
