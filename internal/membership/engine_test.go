package membership

import (
	"testing"

	"collab-service/internal/model"
	"collab-service/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *model.User {
	t.Helper()
	user := model.User{Username: username, Email: username + "@x.com", Password: "hash", Active: true}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func createProject(t *testing.T, db *gorm.DB, owner *model.User) *model.Project {
	t.Helper()
	project := model.Project{Name: "P1", OwnerID: owner.ID}
	require.NoError(t, db.Create(&project).Error)
	return &project
}

func TestInviteCreatesInvitedMembership(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := createProject(t, db, alice)

	m, err := Invite(db, project, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)

	assert.Equal(t, model.MembershipInvited, m.Status)
	assert.Equal(t, bob.ID, m.UserID)
	assert.Equal(t, alice.ID, *m.InvitedByID)
	assert.Nil(t, m.JoinedAt)
}

// A second invite for the same pair is rejected while the first is active.
func TestInviteTwiceRejected(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := createProject(t, db, alice)

	_, err := Invite(db, project, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)

	_, err = Invite(db, project, alice.ID, bob, model.RoleMember)
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestAcceptTransition(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := createProject(t, db, alice)

	_, err := Invite(db, project, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)

	m, err := Accept(db, project, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipAccepted, m.Status)
	require.NotNil(t, m.JoinedAt)

	// Accepting twice fails: the row is no longer invited
	_, err = Accept(db, project, bob.ID)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAcceptWithoutInvite(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := createProject(t, db, alice)

	_, err := Accept(db, project, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// Declining frees the slot for a later re-invite.
func TestDeclineAllowsReinvite(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := createProject(t, db, alice)

	_, err := Invite(db, project, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)

	m, err := Decline(db, project, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MembershipDeclined, m.Status)

	_, err = Invite(db, project, alice.ID, bob, model.RoleMember)
	assert.NoError(t, err)
}

func TestAssignRole(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := createProject(t, db, alice)

	_, err := Invite(db, project, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)
	_, err = Accept(db, project, bob.ID)
	require.NoError(t, err)

	var admin model.Role
	require.NoError(t, db.Where("name = ?", model.RoleAdmin).First(&admin).Error)

	m, err := AssignRole(db, project, bob.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, m.RoleID)
	// Status untouched
	assert.Equal(t, model.MembershipAccepted, m.Status)
}

func TestAssignRoleMissingRole(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := createProject(t, db, alice)

	_, err := Invite(db, project, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)

	_, err = AssignRole(db, project, bob.ID, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemove(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := createProject(t, db, alice)

	_, err := Invite(db, project, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)
	_, err = Accept(db, project, bob.ID)
	require.NoError(t, err)

	require.NoError(t, Remove(db, project, bob.ID))

	// Removing an already removed membership reports not found
	err = Remove(db, project, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var m model.Membership
	require.NoError(t, db.Where("user_id = ?", bob.ID).First(&m).Error)
	assert.Equal(t, model.MembershipRemoved, m.Status)
	assert.NotNil(t, m.LeftAt)
}

// The creator gets an accepted owner membership with no invite step.
func TestEnrollOwner(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	project := createProject(t, db, alice)

	m, err := EnrollOwner(db, project, alice.ID)
	require.NoError(t, err)

	assert.Equal(t, model.MembershipAccepted, m.Status)
	require.NotNil(t, m.JoinedAt)

	var role model.Role
	require.NoError(t, db.First(&role, m.RoleID).Error)
	assert.Equal(t, model.RoleOwner, role.Name)
}

// A missing seed role aborts the whole transaction: nothing is persisted.
func TestEnrollOwnerMissingSeedRole(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")

	require.NoError(t, db.Where("name = ?", model.RoleOwner).Delete(&model.Role{}).Error)

	project := model.Project{Name: "P1", OwnerID: alice.ID}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		_, err := EnrollOwner(tx, &project, alice.ID)
		return err
	})
	assert.ErrorIs(t, err, ErrMissingSeedRole)

	var count int64
	db.Model(&model.Project{}).Count(&count)
	assert.Zero(t, count, "rolled back transaction must leave no project behind")
	db.Model(&model.Membership{}).Count(&count)
	assert.Zero(t, count)
}

// The same engine drives team-scoped memberships.
func TestTeamScopeMembership(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := createProject(t, db, alice)
	team := model.Team{Name: "T1", ProjectID: project.ID}
	require.NoError(t, db.Create(&team).Error)

	_, err := Invite(db, &team, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)

	// The project slot is unaffected by the team invitation
	_, err = Find(db, project, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	m, err := Accept(db, &team, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScopeTeam, m.ScopeType)
	assert.Equal(t, team.ID, m.ScopeID)
}

func TestAcceptedMembers(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	project := createProject(t, db, alice)

	_, err := EnrollOwner(db, project, alice.ID)
	require.NoError(t, err)
	_, err = Invite(db, project, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)
	_, err = Accept(db, project, bob.ID)
	require.NoError(t, err)
	// Carol stays invited and must not show up
	_, err = Invite(db, project, alice.ID, carol, model.RoleMember)
	require.NoError(t, err)

	members, err := AcceptedMembers(db, project)
	require.NoError(t, err)
	require.Len(t, members, 2)
	names := []string{members[0].User.Username, members[1].User.Username}
	assert.ElementsMatch(t, []string{"alice", "bob"}, names)
}
