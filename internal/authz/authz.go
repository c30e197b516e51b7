// Package authz is the single place role and ownership checks live.
// Handlers never join membership tables themselves.
package authz

import (
	"collab-service/internal/model"

	"gorm.io/gorm"
)

// HasRole reports whether the user holds an accepted membership on the
// scope with one of the named roles.
func HasRole(db *gorm.DB, userID uint, scope model.Scope, roles ...string) bool {
	if len(roles) == 0 {
		return false
	}
	var count int64
	db.Model(&model.Membership{}).
		Joins("JOIN roles ON roles.id = memberships.role_id").
		Where("memberships.user_id = ? AND memberships.scope_type = ? AND memberships.scope_id = ? AND memberships.status = ?",
			userID, scope.ScopeType(), scope.ScopeID(), model.MembershipAccepted).
		Where("roles.name IN ?", roles).
		Count(&count)
	return count > 0
}

// IsProjectOwner checks direct ownership. The owner is implicitly
// authorized everywhere inside their project, regardless of memberships.
func IsProjectOwner(db *gorm.DB, userID uint, project *model.Project) bool {
	return project.OwnerID == userID
}

// CanManageProject allows the project owner or anyone holding an accepted
// owner/admin role on the project.
func CanManageProject(db *gorm.DB, userID uint, project *model.Project) bool {
	if IsProjectOwner(db, userID, project) {
		return true
	}
	return HasRole(db, userID, project, model.RoleOwner, model.RoleAdmin)
}

// CanManageTeam walks the containment edge to the enclosing project
// first: the project owner and project owner/admin role holders manage
// every team in the project, as do team-level owner/admins. This is the
// bar for inviting into a team.
func CanManageTeam(db *gorm.DB, userID uint, team *model.Team) (bool, error) {
	var project model.Project
	if err := db.First(&project, team.ProjectID).Error; err != nil {
		return false, err
	}
	if CanManageProject(db, userID, &project) {
		return true, nil
	}
	return HasRole(db, userID, team, model.RoleOwner, model.RoleAdmin), nil
}

// CanAdministerTeam is the stricter bar for changing other members'
// standing in a team (role assignment, removal): only the enclosing
// project's owner and project-level owner/admins qualify. A team-level
// role never grants it.
func CanAdministerTeam(db *gorm.DB, userID uint, team *model.Team) (bool, error) {
	var project model.Project
	if err := db.First(&project, team.ProjectID).Error; err != nil {
		return false, err
	}
	return CanManageProject(db, userID, &project), nil
}

// HasPermission reports whether any of the user's accepted memberships on
// the scope carries a role granting the named permission.
func HasPermission(db *gorm.DB, userID uint, scope model.Scope, permission string) bool {
	var count int64
	db.Model(&model.Membership{}).
		Joins("JOIN role_permissions ON role_permissions.role_id = memberships.role_id").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("memberships.user_id = ? AND memberships.scope_type = ? AND memberships.scope_id = ? AND memberships.status = ?",
			userID, scope.ScopeType(), scope.ScopeID(), model.MembershipAccepted).
		Where("permissions.name = ?", permission).
		Count(&count)
	return count > 0
}

// CanViewProject allows the owner and any accepted member.
func CanViewProject(db *gorm.DB, userID uint, project *model.Project) bool {
	if IsProjectOwner(db, userID, project) {
		return true
	}
	var count int64
	db.Model(&model.Membership{}).
		Where("user_id = ? AND scope_type = ? AND scope_id = ? AND status = ?",
			userID, project.ScopeType(), project.ID, model.MembershipAccepted).
		Count(&count)
	return count > 0
}
