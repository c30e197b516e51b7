package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"collab-service/internal/activity"
	"collab-service/internal/auth"
	"collab-service/internal/authz"
	"collab-service/internal/membership"
	"collab-service/internal/model"
	"collab-service/pkg/database"
	"collab-service/pkg/logger"
	"collab-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateTeam creates a team inside a project and enrolls the creator as
// the team owner. Requires owner/admin on the enclosing project.
func CreateTeam(c echo.Context) error {
	log := logger.FromEcho(c)

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		ProjectID uint   `json:"project_id"`
		Name      string `json:"name"`
	}
	if err := c.Bind(&req); err != nil || req.ProjectID == 0 || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "project_id and name are required"})
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

	defer prometheus.TrackDBOperation("insert")(time.Now())

	team := model.Team{
		Name:      req.Name,
		ProjectID: project.ID,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		_, err := membership.EnrollOwner(tx, &team, user.ID)
		return err
	})
	if err != nil {
		status, msg := membershipStatus(err)
		log.Error("Failed to create team", zap.Error(err))
		return c.JSON(status, echo.Map{"error": msg})
	}

	prometheus.RecordMembershipOperation(model.ScopeTeam, "enroll_owner")
	activity.Record(db, user.ID, "team", team.ID, "create",
		map[string]interface{}{"name": team.Name, "project_id": project.ID})
	log.Info("Team created",
		zap.String("name", team.Name),
		zap.Uint("id", team.ID),
		zap.Uint("project_id", project.ID))

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "Team created successfully",
		"team_id": team.ID,
	})
}

// InviteToTeam invites a user by email to a team. Requires owner/admin on
// the team or its enclosing project.
func InviteToTeam(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMembershipOperation(model.ScopeTeam, "invite")

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid team ID"})
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email is required"})
	}

	db := database.GetDB()
	var team model.Team
	if result := db.First(&team, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "team not found"})
	}

	allowed, err := authz.CanManageTeam(db, user.ID, &team)
	if err != nil {
		log.Error("Failed to resolve team's project", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authorization failed"})
	}
	if !allowed {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var target model.User
	if result := db.Where("email = ?", req.Email).First(&target); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := membership.Invite(tx, &team, user.ID, &target, model.RoleMember)
		return err
	})
	if err != nil {
		status, msg := membershipStatus(err)
		log.Error("Team invitation failed", zap.String("email", req.Email), zap.Error(err))
		return c.JSON(status, echo.Map{"error": msg})
	}

	inviteToken, err := auth.Issue(target.ID)
	if err != nil {
		log.Error("Failed to issue invitation token", zap.Error(err))
	} else {
		go mail.SendInvite(logger.WithContext(context.Background(), log),
			target.Email, team.Name, inviteToken)
	}

	activity.Record(db, user.ID, "team", team.ID, "invite",
		map[string]interface{}{"invited_user_id": target.ID})
	log.Info("User invited to team",
		zap.String("email", target.Email),
		zap.Uint("team_id", team.ID))

	return c.JSON(http.StatusOK, echo.Map{"message": "invitation sent to " + target.Email})
}

// AcceptTeamInvite transitions the caller's own team invitation to
// accepted.
func AcceptTeamInvite(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMembershipOperation(model.ScopeTeam, "accept")

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		TeamID uint `json:"team_id"`
	}
	if err := c.Bind(&req); err != nil || req.TeamID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "team_id is required"})
	}

	db := database.GetDB()
	var team model.Team
	if result := db.First(&team, req.TeamID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "team not found"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := membership.Accept(tx, &team, user.ID)
		return err
	})
	if err != nil {
		status, msg := membershipStatus(err)
		log.Error("Failed to accept team invitation",
			zap.Uint("team_id", team.ID),
			zap.Error(err))
		return c.JSON(status, echo.Map{"error": msg})
	}

	activity.Record(db, user.ID, "team", team.ID, "accept_invite", nil)
	log.Info("Team invitation accepted",
		zap.Uint("team_id", team.ID),
		zap.Uint("user_id", user.ID))

	return c.JSON(http.StatusOK, echo.Map{"message": "you've joined team " + team.Name})
}

// AssignTeamRole overwrites a team member's role. Authorization walks the
// containment edge: only the owner or an owner/admin of the enclosing
// project may change roles inside its teams.
func AssignTeamRole(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordMembershipOperation(model.ScopeTeam, "assign_role")

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req struct {
		TeamID uint `json:"team_id"`
		UserID uint `json:"user_id"`
		RoleID uint `json:"role_id"`
	}
	if err := c.Bind(&req); err != nil || req.TeamID == 0 || req.UserID == 0 || req.RoleID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "team_id, user_id and role_id are required"})
	}

	db := database.GetDB()
	var team model.Team
	if result := db.First(&team, req.TeamID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "team not found"})
	}

	allowed, err := authz.CanAdministerTeam(db, user.ID, &team)
	if err != nil {
		log.Error("Failed to resolve team's project", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authorization failed"})
	}
	if !allowed {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())

	var assigned *model.Membership
	err = db.Transaction(func(tx *gorm.DB) error {
		var err error
		assigned, err = membership.AssignRole(tx, &team, req.UserID, req.RoleID)
		return err
	})
	if err != nil {
		status, msg := membershipStatus(err)
		log.Error("Failed to assign team role", zap.Error(err))
		return c.JSON(status, echo.Map{"error": msg})
	}

	activity.Record(db, user.ID, "team", team.ID, "assign_role",
		map[string]interface{}{"user_id": req.UserID, "role": assigned.Role.Name})
	log.Info("Team role assigned",
		zap.Uint("team_id", team.ID),
		zap.Uint("user_id", req.UserID),
		zap.String("role", assigned.Role.Name))

	return c.JSON(http.StatusOK, echo.Map{
		"message": "role '" + assigned.Role.Name + "' assigned",
	})
}

// DeleteMembership removes a membership addressed by its row id, from
// either scope. Project rows require owner/admin standing on the project;
// team rows require that same standing on the enclosing project.
func DeleteMembership(c echo.Context) error {
	log := logger.FromEcho(c)

	user, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid membership ID"})
	}

	db := database.GetDB()
	var m model.Membership
	if result := db.First(&m, id); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "membership not found"})
	}

	var allowed bool
	switch m.ScopeType {
	case model.ScopeProject:
		var project model.Project
		if result := db.First(&project, m.ScopeID); result.Error != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "project not found"})
		}
		allowed = authz.CanManageProject(db, user.ID, &project)
	case model.ScopeTeam:
		var team model.Team
		if result := db.First(&team, m.ScopeID); result.Error != nil {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "team not found"})
		}
		allowed, err = authz.CanAdministerTeam(db, user.ID, &team)
		if err != nil {
			log.Error("Failed to resolve team's project", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "authorization failed"})
		}
	default:
		return c.JSON(http.StatusNotFound, echo.Map{"error": "membership not found"})
	}

	if !allowed {
		prometheus.ForbiddenCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	prometheus.RecordMembershipOperation(m.ScopeType, "remove")
	defer prometheus.TrackDBOperation("update")(time.Now())

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := membership.RemoveByID(tx, m.ID)
		return err
	})
	if err != nil {
		status, msg := membershipStatus(err)
		log.Error("Failed to remove membership", zap.Error(err))
		return c.JSON(status, echo.Map{"error": msg})
	}

	activity.Record(db, user.ID, "membership", m.ID, "remove",
		map[string]interface{}{"scope_type": m.ScopeType, "scope_id": m.ScopeID, "user_id": m.UserID})
	log.Info("Membership removed",
		zap.Uint("membership_id", m.ID),
		zap.String("scope_type", m.ScopeType),
		zap.Uint("scope_id", m.ScopeID))

	return c.JSON(http.StatusOK, echo.Map{"message": "membership removed"})
}
