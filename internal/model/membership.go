package model

import (
	"time"

	"gorm.io/gorm"
)

// MembershipStatus is the lifecycle state of a membership row.
type MembershipStatus string

const (
	MembershipInvited  MembershipStatus = "invited"
	MembershipAccepted MembershipStatus = "accepted"
	MembershipDeclined MembershipStatus = "declined"
	MembershipRemoved  MembershipStatus = "removed"
)

// Scope is anything a membership can be evaluated against: a project or a
// team. ScopeType/ScopeID match the polymorphic columns on Membership.
type Scope interface {
	ScopeType() string
	ScopeID() uint
	ScopeName() string
}

const (
	ScopeProject = "projects"
	ScopeTeam    = "teams"
)

func (p *Project) ScopeType() string { return ScopeProject }
func (p *Project) ScopeID() uint     { return p.ID }
func (p *Project) ScopeName() string { return p.Name }

func (t *Team) ScopeType() string { return ScopeTeam }
func (t *Team) ScopeID() uint     { return t.ID }
func (t *Team) ScopeName() string { return t.Name }

// Membership ties one user to one scope with exactly one role. The same
// row shape serves both project and team scopes through the polymorphic
// Scope columns. At most one non-removed row may exist per (user, scope);
// the membership engine enforces that inside its transaction.
type Membership struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	UserID      uint             `json:"user_id" gorm:"index:idx_membership_scope;not null"`
	ScopeType   string           `json:"scope_type" gorm:"type:varchar(20);index:idx_membership_scope;not null"`
	ScopeID     uint             `json:"scope_id" gorm:"index:idx_membership_scope;not null"`
	RoleID      uint             `json:"role_id" gorm:"index;not null"`
	Status      MembershipStatus `json:"status" gorm:"type:varchar(20);not null;default:'invited'"`
	InvitedByID *uint            `json:"invited_by_id,omitempty"`
	InvitedAt   time.Time        `json:"invited_at"`
	JoinedAt    *time.Time       `json:"joined_at,omitempty"`
	LeftAt      *time.Time       `json:"left_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `json:"-" gorm:"index"`

	// Relations
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Role Role `json:"role,omitempty" gorm:"foreignKey:RoleID"`
}

// Active reports whether the row still occupies the (user, scope) slot.
// Declined and removed rows do not block a fresh invitation.
func (m *Membership) Active() bool {
	return m.Status == MembershipInvited || m.Status == MembershipAccepted
}
