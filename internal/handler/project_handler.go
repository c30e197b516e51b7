package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"collab-service/internal/activity"
	"collab-service/internal/auth"
	"collab-service/internal/authz"
	"collab-service/internal/membership"
	"collab-service/internal/middleware"
	"collab-service/internal/model"
	"collab-service/pkg/database"
	"collab-service/pkg/logger"
	"collab-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// currentUser returns the principal resolved by the auth middleware.
func currentUser(c echo.Context) (*model.User, bool) {
	user, ok := c.Get(middleware.CurrentUserKey).(*model.User)
	return user, ok
}

func membershipStatus(err error) (int, string) {
	switch {
	case errors.Is(err, membership.ErrAlreadyMember):
		return http.StatusBadRequest, "user already invited or joined"
	case errors.Is(err, membership.ErrInvalidState):
		return http.StatusBadRequest, "membership is not in the required state"
	case errors.Is(err, membership.ErrNotFound):
		return http.StatusNotFound, "membership not found"
	case errors.Is(err, membership.ErrMissingSeedRole):
		return http.StatusInternalServerError, "required role is not configured"
	default:
		return http.StatusInternalServerError, "operation failed"
	}
}

// CreateProject creates a project and enrolls the creator as its owner in
// one transaction.
func CreateProject(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordProjectOperation("create")

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse project creation request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	project := model.Project{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     user.ID,
	}
	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		_, err := membership.EnrollOwner(tx, &project, user.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, membership.ErrMissingSeedRole) {
			log.Error("Owner role missing from seed data", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "required role is not configured"})
		}
		log.Error("Failed to create project", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "project creation failed"})
	}

	prometheus.RecordMembershipOperation(model.ScopeProject, "enroll_owner")
	activity.Record(database.GetDB(), user.ID, "project", project.ID, "create",
		map[string]interface{}{"name": project.Name})

	log.Info("Project created",
		zap.String("name", project.Name),
		zap.Uint("id", project.ID),
		zap.Uint("owner_id", project.OwnerID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message":    "Project created successfully",
		"project_id": project.ID,
	})
}

// ListProjects returns the projects the caller owns or has an accepted
// membership in.
func ListProjects(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordProjectOperation("list")

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	var projects []model.Project
	err := database.GetDB().
		Distinct("projects.*").
		Joins("LEFT JOIN memberships ON memberships.scope_type = ? AND memberships.scope_id = projects.id AND memberships.user_id = ? AND memberships.status = ?",
			model.ScopeProject, user.ID, model.MembershipAccepted).
		Where("projects.owner_id = ? OR memberships.id IS NOT NULL", user.ID).
		Find(&projects).Error
	if err != nil {
		log.Error("Failed to list projects", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve projects"})
	}

	return c.JSON(http.StatusOK, projects)
}

// GetProject returns project details with members, tasks and comments.
// Only the owner and accepted members may see it.
func GetProject(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordProjectOperation("detail")

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())

	db := database.GetDB()
	var project model.Project
	if result := db.Preload("Owner").First(&project, id); result.Error != nil {
		log.Error("Project not found", zap.Uint64("id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	if !authz.CanViewProject(db, user.ID, &project) {
		log.Warn("Unauthorized project access attempt",
			zap.Uint("requesting_user_id", user.ID),
			zap.Uint("project_id", project.ID))
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	members, err := membership.AcceptedMembers(db, &project)
	if err != nil {
		log.Error("Failed to load project members", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve project"})
	}

	var tasks []model.Task
	if err := db.Where("project_id = ? AND is_deleted = ?", project.ID, false).Find(&tasks).Error; err != nil {
		log.Error("Failed to load project tasks", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve project"})
	}

	type commentResponse struct {
		ID     uint   `json:"id"`
		Text   string `json:"text"`
		Author string `json:"author"`
	}
	type taskResponse struct {
		ID       uint              `json:"id"`
		Title    string            `json:"title"`
		Status   model.TaskStatus  `json:"status"`
		Comments []commentResponse `json:"comments"`
	}

	taskData := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		var comments []model.Comment
		if err := db.Preload("Author").
			Where("task_id = ? AND is_deleted = ?", task.ID, false).
			Find(&comments).Error; err != nil {
			log.Error("Failed to load task comments", zap.Uint("task_id", task.ID), zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve project"})
		}
		tr := taskResponse{ID: task.ID, Title: task.Title, Status: task.Status, Comments: []commentResponse{}}
		for _, comment := range comments {
			tr.Comments = append(tr.Comments, commentResponse{
				ID:     comment.ID,
				Text:   comment.Text,
				Author: comment.Author.Username,
			})
		}
		taskData = append(taskData, tr)
	}

	memberData := make([]echo.Map, 0, len(members))
	for _, m := range members {
		memberData = append(memberData, echo.Map{
			"id":       m.UserID,
			"username": m.User.Username,
			"role":     m.Role.Name,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"project": echo.Map{
			"id":    project.ID,
			"name":  project.Name,
			"owner": project.Owner.Username,
		},
		"members": memberData,
		"tasks":   taskData,
	})
}

// DeleteProject removes a project and everything under it. Owner only.
func DeleteProject(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordProjectOperation("delete")

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	db := database.GetDB()
	var project model.Project
	if result := db.First(&project, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	if !authz.IsProjectOwner(db, user.ID, &project) {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only the project owner can delete this project"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())

	err = db.Transaction(func(tx *gorm.DB) error {
		var teamIDs []uint
		if err := tx.Model(&model.Team{}).Where("project_id = ?", project.ID).
			Pluck("id", &teamIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("scope_type = ? AND scope_id = ?", model.ScopeProject, project.ID).
			Delete(&model.Membership{}).Error; err != nil {
			return err
		}
		if len(teamIDs) > 0 {
			if err := tx.Where("scope_type = ? AND scope_id IN ?", model.ScopeTeam, teamIDs).
				Delete(&model.Membership{}).Error; err != nil {
				return err
			}
		}
		var taskIDs []uint
		if err := tx.Model(&model.Task{}).Where("project_id = ?", project.ID).
			Pluck("id", &taskIDs).Error; err != nil {
			return err
		}
		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&model.Comment{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&model.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&model.Team{}).Error; err != nil {
			return err
		}
		return tx.Delete(&project).Error
	})
	if err != nil {
		log.Error("Failed to delete project", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "project deletion failed"})
	}

	activity.Record(db, user.ID, "project", project.ID, "delete",
		map[string]interface{}{"name": project.Name})
	log.Info("Project deleted", zap.Uint("id", project.ID), zap.String("name", project.Name))

	return c.JSON(http.StatusOK, echo.Map{"message": "project deleted"})
}

// InviteToProject invites a user by email. The invitation mail is sent
// after the transaction commits and never fails the request.
func InviteToProject(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMembershipOperation(model.ScopeProject, "invite")

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	db := database.GetDB()
	var project model.Project
	if result := db.First(&project, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	if !authz.CanManageProject(db, user.ID, &project) {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var target model.User
	if result := db.Where("email = ?", req.Email).First(&target); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := membership.Invite(tx, &project, user.ID, &target, model.RoleMember)
		return err
	})
	if err != nil {
		status, msg := membershipStatus(err)
		log.Error("Project invitation failed", zap.String("email", req.Email), zap.Error(err))
		return c.JSON(status, echo.Map{"error": msg})
	}

	// Send the invitation mail outside the request path
	inviteToken, err := auth.Issue(target.ID)
	if err != nil {
		log.Error("Failed to issue invitation token", zap.Error(err))
	} else {
		go mail.SendInvite(logger.WithContext(context.Background(), log),
			target.Email, project.Name, inviteToken)
	}

	activity.Record(db, user.ID, "project", project.ID, "invite",
		map[string]interface{}{"invited_user_id": target.ID})
	log.Info("User invited to project",
		zap.String("email", target.Email),
		zap.Uint("project_id", project.ID))

	return c.JSON(http.StatusOK, echo.Map{"message": "invitation sent to " + target.Email})
}

// AcceptProjectInvite transitions the caller's own invitation to accepted
func AcceptProjectInvite(c echo.Context) error {
	return resolveProjectInvite(c, "accept")
}

// DeclineProjectInvite turns down a pending invitation
func DeclineProjectInvite(c echo.Context) error {
	return resolveProjectInvite(c, "decline")
}

func resolveProjectInvite(c echo.Context, action string) error {
	log := logger.FromEcho(c)
	prometheus.RecordMembershipOperation(model.ScopeProject, action)

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		ProjectID uint `json:"project_id"`
	}
	if err := c.Bind(&req); err != nil || req.ProjectID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "project_id is required"})
	}

	db := database.GetDB()
	var project model.Project
	if result := db.First(&project, req.ProjectID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		if action == "accept" {
			_, err = membership.Accept(tx, &project, user.ID)
		} else {
			_, err = membership.Decline(tx, &project, user.ID)
		}
		return err
	})
	if err != nil {
		status, msg := membershipStatus(err)
		log.Error("Failed to resolve project invitation",
			zap.String("action", action),
			zap.Uint("project_id", project.ID),
			zap.Error(err))
		return c.JSON(status, echo.Map{"error": msg})
	}

	activity.Record(db, user.ID, "project", project.ID, action+"_invite", nil)
	log.Info("Project invitation resolved",
		zap.String("action", action),
		zap.Uint("project_id", project.ID),
		zap.Uint("user_id", user.ID))

	if action == "accept" {
		return c.JSON(http.StatusOK, echo.Map{"message": "you've joined project " + project.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "invitation declined"})
}

// AssignProjectRole overwrites the role of a project member. Owner and
// project admins only.
func AssignProjectRole(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMembershipOperation(model.ScopeProject, "assign_role")

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		ProjectID uint `json:"project_id"`
		UserID    uint `json:"user_id"`
		RoleID    uint `json:"role_id"`
	}
	if err := c.Bind(&req); err != nil || req.ProjectID == 0 || req.UserID == 0 || req.RoleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "project_id, user_id and role_id are required"})
	}

	db := database.GetDB()
	var project model.Project
	if result := db.First(&project, req.ProjectID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	if !authz.CanManageProject(db, user.ID, &project) {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var assigned *model.Membership
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		assigned, err = membership.AssignRole(tx, &project, req.UserID, req.RoleID)
		return err
	})
	if err != nil {
		status, msg := membershipStatus(err)
		log.Error("Failed to assign project role", zap.Error(err))
		return c.JSON(status, echo.Map{"error": msg})
	}

	activity.Record(db, user.ID, "project", project.ID, "assign_role",
		map[string]interface{}{"user_id": req.UserID, "role": assigned.Role.Name})
	log.Info("Project role assigned",
		zap.Uint("project_id", project.ID),
		zap.Uint("user_id", req.UserID),
		zap.String("role", assigned.Role.Name))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "role '" + assigned.Role.Name + "' assigned",
	})
}

// RemoveProjectUser removes a member from the project. Owner and project
// admins only.
func RemoveProjectUser(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMembershipOperation(model.ScopeProject, "remove")

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	projectID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid project ID"})
	}
	targetID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	db := database.GetDB()
	var project model.Project
	if result := db.First(&project, projectID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
	}

	if !authz.CanManageProject(db, user.ID, &project) {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	err = db.Transaction(func(tx *gorm.DB) error {
		return membership.Remove(tx, &project, uint(targetID))
	})
	if err != nil {
		status, msg := membershipStatus(err)
		log.Error("Failed to remove project member", zap.Error(err))
		return c.JSON(status, echo.Map{"error": msg})
	}

	activity.Record(db, user.ID, "project", project.ID, "remove_member",
		map[string]interface{}{"user_id": targetID})
	log.Info("User removed from project",
		zap.Uint("project_id", project.ID),
		zap.Uint64("user_id", targetID))

	return c.JSON(http.StatusOK, echo.Map{"message": "user removed from project"})
}
