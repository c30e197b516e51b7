package authz

import (
	"testing"

	"collab-service/internal/membership"
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

func TestOwnerBypass(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	project := model.Project{Name: "P1", OwnerID: alice.ID}
	require.NoError(t, db.Create(&project).Error)

	// No membership row at all, ownership alone is enough
	assert.True(t, IsProjectOwner(db, alice.ID, &project))
	assert.True(t, CanManageProject(db, alice.ID, &project))
	assert.True(t, CanViewProject(db, alice.ID, &project))
}

func TestHasRoleRequiresAcceptedStatus(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := model.Project{Name: "P1", OwnerID: alice.ID}
	require.NoError(t, db.Create(&project).Error)

	_, err := membership.Invite(db, &project, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)

	// Invited but not yet accepted
	assert.False(t, HasRole(db, bob.ID, &project, model.RoleMember))
	assert.False(t, CanViewProject(db, bob.ID, &project))

	_, err = membership.Accept(db, &project, bob.ID)
	require.NoError(t, err)

	assert.True(t, HasRole(db, bob.ID, &project, model.RoleMember))
	assert.True(t, CanViewProject(db, bob.ID, &project))
	// Member role is not enough to manage the project
	assert.False(t, CanManageProject(db, bob.ID, &project))
}

func TestNonMemberForbidden(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	carol := createUser(t, db, "carol")
	project := model.Project{Name: "P1", OwnerID: alice.ID}
	require.NoError(t, db.Create(&project).Error)

	assert.False(t, HasRole(db, carol.ID, &project, model.RoleOwner, model.RoleAdmin))
	assert.False(t, CanManageProject(db, carol.ID, &project))
	assert.False(t, CanViewProject(db, carol.ID, &project))
}

func TestAdminRoleCanManage(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := model.Project{Name: "P1", OwnerID: alice.ID}
	require.NoError(t, db.Create(&project).Error)

	_, err := membership.Invite(db, &project, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)
	_, err = membership.Accept(db, &project, bob.ID)
	require.NoError(t, err)

	var admin model.Role
	require.NoError(t, db.Where("name = ?", model.RoleAdmin).First(&admin).Error)
	_, err = membership.AssignRole(db, &project, bob.ID, admin.ID)
	require.NoError(t, err)

	assert.True(t, CanManageProject(db, bob.ID, &project))
}

// Managing a team walks the containment edge to the enclosing project.
func TestCanManageTeamViaProject(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	carol := createUser(t, db, "carol")
	project := model.Project{Name: "P1", OwnerID: alice.ID}
	require.NoError(t, db.Create(&project).Error)
	team := model.Team{Name: "T1", ProjectID: project.ID}
	require.NoError(t, db.Create(&team).Error)

	allowed, err := CanManageTeam(db, alice.ID, &team)
	require.NoError(t, err)
	assert.True(t, allowed, "project owner manages every team in the project")

	allowed, err = CanManageTeam(db, carol.ID, &team)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestCanManageTeamViaTeamRole(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := model.Project{Name: "P1", OwnerID: alice.ID}
	require.NoError(t, db.Create(&project).Error)
	team := model.Team{Name: "T1", ProjectID: project.ID}
	require.NoError(t, db.Create(&team).Error)

	_, err := membership.EnrollOwner(db, &team, bob.ID)
	require.NoError(t, err)

	// A team-level owner may invite into the team
	allowed, err := CanManageTeam(db, bob.ID, &team)
	require.NoError(t, err)
	assert.True(t, allowed)

	// A team-level role grants nothing on the project itself
	assert.False(t, CanManageProject(db, bob.ID, &project))
}

// Changing other members' roles or removing them from a team is reserved
// for project-level owner/admins; a team-scoped role is not enough.
func TestCanAdministerTeamRequiresProjectStanding(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	project := model.Project{Name: "P1", OwnerID: alice.ID}
	require.NoError(t, db.Create(&project).Error)
	team := model.Team{Name: "T1", ProjectID: project.ID}
	require.NoError(t, db.Create(&team).Error)

	// Bob holds an accepted team-level owner role, nothing on the project
	_, err := membership.EnrollOwner(db, &team, bob.ID)
	require.NoError(t, err)

	allowed, err := CanAdministerTeam(db, bob.ID, &team)
	require.NoError(t, err)
	assert.False(t, allowed)

	// The project owner always qualifies
	allowed, err = CanAdministerTeam(db, alice.ID, &team)
	require.NoError(t, err)
	assert.True(t, allowed)

	// So does a project-level admin
	_, err = membership.Invite(db, &project, alice.ID, carol, model.RoleMember)
	require.NoError(t, err)
	_, err = membership.Accept(db, &project, carol.ID)
	require.NoError(t, err)
	var admin model.Role
	require.NoError(t, db.Where("name = ?", model.RoleAdmin).First(&admin).Error)
	_, err = membership.AssignRole(db, &project, carol.ID, admin.ID)
	require.NoError(t, err)

	allowed, err = CanAdministerTeam(db, carol.ID, &team)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestHasPermission(t *testing.T) {
	db := setupDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	project := model.Project{Name: "P1", OwnerID: alice.ID}
	require.NoError(t, db.Create(&project).Error)

	_, err := membership.Invite(db, &project, alice.ID, bob, model.RoleMember)
	require.NoError(t, err)
	_, err = membership.Accept(db, &project, bob.ID)
	require.NoError(t, err)

	// Seeded member role can read and write tasks but not delete projects
	assert.True(t, HasPermission(db, bob.ID, &project, "read_task"))
	assert.True(t, HasPermission(db, bob.ID, &project, "add_task"))
	assert.False(t, HasPermission(db, bob.ID, &project, "delete_project"))
}
