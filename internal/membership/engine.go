// Package membership implements the lifecycle state machine for project
// and team memberships: invited -> accepted | declined | removed. The same
// engine serves both scopes through the polymorphic membership row.
//
// Every mutation is expected to run inside the caller's transaction so a
// failed role lookup rolls back any membership row written before it.
package membership

import (
	"errors"
	"time"

	"collab-service/internal/model"

	"gorm.io/gorm"
)

var (
	ErrAlreadyMember = errors.New("user already invited or joined")
	ErrInvalidState  = errors.New("membership is not in the required state")
	ErrNotFound      = errors.New("membership not found")
	// ErrMissingSeedRole indicates a deployment defect: a role the core
	// depends on (e.g. "owner") is absent from the roles table.
	ErrMissingSeedRole = errors.New("seed role not found")
)

// seedRoleNames guards the distinction between a missing seed role
// (configuration error) and a missing custom role (not found).
var seedRoleNames = map[string]bool{
	model.RoleOwner:  true,
	model.RoleAdmin:  true,
	model.RoleMember: true,
}

func roleByName(tx *gorm.DB, name string) (*model.Role, error) {
	var role model.Role
	if err := tx.Where("name = ?", name).First(&role).Error; err != nil {
		if seedRoleNames[name] {
			return nil, ErrMissingSeedRole
		}
		return nil, ErrNotFound
	}
	return &role, nil
}

// Find returns the row currently occupying the (user, scope) slot, i.e.
// the most recent membership that has not been removed.
func Find(tx *gorm.DB, scope model.Scope, userID uint) (*model.Membership, error) {
	var m model.Membership
	err := tx.Where("user_id = ? AND scope_type = ? AND scope_id = ? AND status <> ?",
		userID, scope.ScopeType(), scope.ScopeID(), model.MembershipRemoved).
		Order("id DESC").First(&m).Error
	if err != nil {
		return nil, ErrNotFound
	}
	return &m, nil
}

// Invite creates an invited membership for the target user with the named
// role. An active (invited or accepted) row for the same pair rejects the
// invitation; declined and removed rows do not.
func Invite(tx *gorm.DB, scope model.Scope, inviterID uint, target *model.User, roleName string) (*model.Membership, error) {
	existing, err := Find(tx, scope, target.ID)
	if err == nil && existing.Active() {
		return nil, ErrAlreadyMember
	}

	role, err := roleByName(tx, roleName)
	if err != nil {
		return nil, err
	}

	m := model.Membership{
		UserID:      target.ID,
		ScopeType:   scope.ScopeType(),
		ScopeID:     scope.ScopeID(),
		RoleID:      role.ID,
		Status:      model.MembershipInvited,
		InvitedByID: &inviterID,
		InvitedAt:   time.Now(),
	}
	if err := tx.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// Accept transitions the caller's own invitation to accepted and stamps
// the join time. Only the invited -> accepted edge exists.
func Accept(tx *gorm.DB, scope model.Scope, userID uint) (*model.Membership, error) {
	m, err := Find(tx, scope, userID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.MembershipInvited {
		return nil, ErrInvalidState
	}

	now := time.Now()
	m.Status = model.MembershipAccepted
	m.JoinedAt = &now
	if err := tx.Save(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// Decline turns down a pending invitation. A declined row frees the
// (user, scope) slot for a later re-invite.
func Decline(tx *gorm.DB, scope model.Scope, userID uint) (*model.Membership, error) {
	m, err := Find(tx, scope, userID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.MembershipInvited {
		return nil, ErrInvalidState
	}

	m.Status = model.MembershipDeclined
	if err := tx.Save(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// AssignRole overwrites the role on an existing membership. Status is
// untouched.
func AssignRole(tx *gorm.DB, scope model.Scope, userID, roleID uint) (*model.Membership, error) {
	m, err := Find(tx, scope, userID)
	if err != nil {
		return nil, err
	}

	var role model.Role
	if err := tx.First(&role, roleID).Error; err != nil {
		return nil, ErrNotFound
	}

	m.RoleID = role.ID
	if err := tx.Save(m).Error; err != nil {
		return nil, err
	}
	m.Role = role
	return m, nil
}

// Remove marks the membership removed and stamps the leave time. Removing
// a row that is already gone reports ErrNotFound rather than succeeding
// silently.
func Remove(tx *gorm.DB, scope model.Scope, userID uint) error {
	m, err := Find(tx, scope, userID)
	if err != nil {
		return err
	}
	return remove(tx, m)
}

// RemoveByID removes a membership addressed directly by its row id.
func RemoveByID(tx *gorm.DB, membershipID uint) (*model.Membership, error) {
	var m model.Membership
	if err := tx.Where("id = ? AND status <> ?", membershipID, model.MembershipRemoved).
		First(&m).Error; err != nil {
		return nil, ErrNotFound
	}
	return &m, remove(tx, &m)
}

func remove(tx *gorm.DB, m *model.Membership) error {
	now := time.Now()
	m.Status = model.MembershipRemoved
	m.LeftAt = &now
	return tx.Save(m).Error
}

// EnrollOwner gives the creator of a project or team an accepted owner
// membership in one step. This is the only transition that skips the
// invited state.
func EnrollOwner(tx *gorm.DB, scope model.Scope, userID uint) (*model.Membership, error) {
	role, err := roleByName(tx, model.RoleOwner)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	m := model.Membership{
		UserID:    userID,
		ScopeType: scope.ScopeType(),
		ScopeID:   scope.ScopeID(),
		RoleID:    role.ID,
		Status:    model.MembershipAccepted,
		InvitedAt: now,
		JoinedAt:  &now,
	}
	if err := tx.Create(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// AcceptedMembers lists the accepted memberships of a scope with user and
// role preloaded, for detail views.
func AcceptedMembers(db *gorm.DB, scope model.Scope) ([]model.Membership, error) {
	var members []model.Membership
	err := db.Preload("User").Preload("Role").
		Where("scope_type = ? AND scope_id = ? AND status = ?",
			scope.ScopeType(), scope.ScopeID(), model.MembershipAccepted).
		Find(&members).Error
	return members, err
}
