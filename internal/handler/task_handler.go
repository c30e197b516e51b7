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

// CreateTask creates a task inside a team. The caller needs the add_task
// permission on the project or ownership of it.
func CreateTask(c echo.Context) error {
	log := logger.FromEcho(c)

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		TeamID      uint       `json:"team_id"`
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Deadline    *time.Time `json:"deadline,omitempty"`
		AssigneeID  *uint      `json:"assignee_id,omitempty"`
		ParentID    *uint      `json:"parent_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil || req.TeamID == 0 || req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "team_id and title are required"})
	}

	db := database.GetDB()
	var team model.Team
	if result := db.First(&team, req.TeamID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "team not found"})
	}
	var project model.Project
	if result := db.First(&project, team.ProjectID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	if !authz.IsProjectOwner(db, user.ID, &project) &&
		!authz.HasPermission(db, user.ID, &project, "add_task") &&
		!authz.HasPermission(db, user.ID, &team, "add_task") {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	if req.ParentID != nil {
		var parent model.Task
		if result := db.Where("id = ? AND project_id = ?", *req.ParentID, project.ID).First(&parent); result.Error != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "parent task not found"})
		}
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	authorID := user.ID
	task := model.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      model.TaskNew,
		Deadline:    req.Deadline,
		AuthorID:    &authorID,
		AssigneeID:  req.AssigneeID,
		ParentID:    req.ParentID,
		ProjectID:   project.ID,
		TeamID:      team.ID,
	}
	if result := db.Create(&task); result.Error != nil {
		log.Error("Failed to create task", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "task creation failed"})
	}

	activity.Record(db, user.ID, "task", task.ID, "create",
		map[string]interface{}{"title": task.Title, "team_id": team.ID})
	log.Info("Task created",
		zap.Uint("id", task.ID),
		zap.String("title", task.Title),
		zap.Uint("team_id", team.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Task created successfully",
		"task_id": task.ID,
	})
}

// UpdateTask partially updates a task. Status moving to done stamps
// completed_at.
func UpdateTask(c echo.Context) error {
	log := logger.FromEcho(c)

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task ID"})
	}

	var req struct {
		Title       *string           `json:"title,omitempty"`
		Description *string           `json:"description,omitempty"`
		Status      *model.TaskStatus `json:"status,omitempty"`
		Deadline    *time.Time        `json:"deadline,omitempty"`
		AssigneeID  *uint             `json:"assignee_id,omitempty"`
		ParentID    *uint             `json:"parent_id,omitempty"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	db := database.GetDB()
	var task model.Task
	if result := db.Where("id = ? AND is_deleted = ?", id, false).First(&task); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	}
	var project model.Project
	if result := db.First(&project, task.ProjectID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	if !authz.IsProjectOwner(db, user.ID, &project) &&
		!authz.HasPermission(db, user.ID, &project, "update_task") {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	changes := map[string]interface{}{}
	if req.Title != nil {
		task.Title = *req.Title
		changes["title"] = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
		changes["description"] = *req.Description
	}
	if req.Deadline != nil {
		task.Deadline = req.Deadline
		changes["deadline"] = *req.Deadline
	}
	if req.AssigneeID != nil {
		task.AssigneeID = req.AssigneeID
		changes["assignee_id"] = *req.AssigneeID
	}
	if req.ParentID != nil {
		if *req.ParentID == task.ID {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "task cannot be its own parent"})
		}
		var parent model.Task
		if result := db.Where("id = ? AND project_id = ?", *req.ParentID, task.ProjectID).First(&parent); result.Error != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "parent task not found"})
		}
		task.ParentID = req.ParentID
		changes["parent_id"] = *req.ParentID
	}
	if req.Status != nil {
		switch *req.Status {
		case model.TaskNew, model.TaskInProgress, model.TaskDone, model.TaskOverdue:
		default:
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task status"})
		}
		task.Status = *req.Status
		changes["status"] = *req.Status
		if *req.Status == model.TaskDone && task.CompletedAt == nil {
			now := time.Now()
			task.CompletedAt = &now
		}
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := db.Save(&task); result.Error != nil {
		log.Error("Failed to update task", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "task update failed"})
	}

	activity.Record(db, user.ID, "task", task.ID, "update", changes)
	log.Info("Task updated", zap.Uint("id", task.ID))

	return c.JSON(http.StatusOK, task)
}

// DeleteTask soft-deletes a task. Author or project owner/admin only.
func DeleteTask(c echo.Context) error {
	log := logger.FromEcho(c)

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid task ID"})
	}

	db := database.GetDB()
	var task model.Task
	if result := db.Where("id = ? AND is_deleted = ?", id, false).First(&task); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "task not found"})
	}
	var project model.Project
	if result := db.First(&project, task.ProjectID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	isAuthor := task.AuthorID != nil && *task.AuthorID == user.ID
	if !isAuthor && !authz.CanManageProject(db, user.ID, &project) {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := db.Model(&task).Update("is_deleted", true); result.Error != nil {
		log.Error("Failed to delete task", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "task deletion failed"})
	}

	activity.Record(db, user.ID, "task", task.ID, "delete", nil)
	log.Info("Task deleted", zap.Uint("id", task.ID))

	return c.JSON(http.StatusOK, echo.Map{"message": "task deleted"})
}
