package handler

import (
	"net/http"
	"strconv"
	"time"

	"collab-service/internal/activity"
	"collab-service/internal/authz"
	"collab-service/internal/model"
	"collab-service/pkg/database"
	"collab-service/pkg/logger"
	"collab-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CreateComment adds a comment to a task. The caller needs the
// add_comment permission on the project or ownership of it.
func CreateComment(c echo.Context) error {
	log := logger.FromEcho(c)

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	taskID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task ID"})
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&req); err != nil || req.Text == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "text is required"})
	}

	db := database.GetDB()
	var task model.Task
	if result := db.Where("id = ? AND is_deleted = ?", taskID, false).First(&task); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	}
	var project model.Project
	if result := db.First(&project, task.ProjectID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	if !authz.IsProjectOwner(db, user.ID, &project) &&
		!authz.HasPermission(db, user.ID, &project, "add_comment") {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	comment := model.Comment{
		Text:     req.Text,
		TaskID:   task.ID,
		AuthorID: user.ID,
	}
	if result := db.Create(&comment); result.Error != nil {
		log.Error("Failed to create comment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "comment creation failed"})
	}

	activity.Record(db, user.ID, "comment", comment.ID, "create",
		map[string]interface{}{"task_id": task.ID})
	log.Info("Comment created",
		zap.Uint("id", comment.ID),
		zap.Uint("task_id", task.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "Comment created successfully",
		"comment_id": comment.ID,
	})
}

// DeleteComment soft-deletes a comment. Author or project owner/admin
// only.
func DeleteComment(c echo.Context) error {
	log := logger.FromEcho(c)

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid comment ID"})
	}

	db := database.GetDB()
	var comment model.Comment
	if result := db.Where("id = ? AND is_deleted = ?", id, false).First(&comment); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "comment not found"})
	}
	var task model.Task
	if result := db.First(&task, comment.TaskID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	}
	var project model.Project
	if result := db.First(&project, task.ProjectID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	if comment.AuthorID != user.ID && !authz.CanManageProject(db, user.ID, &project) {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := db.Model(&comment).Update("is_deleted", true); result.Error != nil {
		log.Error("Failed to delete comment", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "comment deletion failed"})
	}

	activity.Record(db, user.ID, "comment", comment.ID, "delete", nil)
	log.Info("Comment deleted", zap.Uint("id", comment.ID))

	return c.JSON(http.StatusOK, echo.Map{"message": "comment deleted"})
}
