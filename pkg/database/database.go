package database

import (
	"collab-service/internal/model"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// DBConfig holds the database configuration
type DBConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// Initialize initializes the database connection with the provided configuration
func Initialize(config DBConfig) error {
	var err error

	// Set default log level if not specified
	logLevel := config.LogLevel
	if logLevel == 0 {
		logLevel = logger.Info
	}

	// Connect to the database with DisableAutoPrepare option to prevent "prepared statement already exists" errors
	pgConfig := postgres.Config{
		DSN:                  config.DSN,
		PreferSimpleProtocol: true, // Disables implicit prepared statement usage
	}

	DB, err = gorm.Open(postgres.New(pgConfig), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})

	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
		return err
	}

	// Configure connection pool
	sqlDB, err := DB.DB()
	if err != nil {
		log.Fatalf("Failed to get database connection: %v", err)
		return err
	}

	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}

	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}

	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if err := Migrate(DB); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
		return err
	}

	fmt.Println("Database connected and migrated successfully")
	return nil
}

// Migrate creates or updates the table structure and inserts the seed
// roles and permissions the core logic depends on.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.Project{},
		&model.Team{},
		&model.Role{},
		&model.Permission{},
		&model.Membership{},
		&model.Task{},
		&model.Comment{},
		&model.ActivityLog{},
		&model.BlacklistedToken{},
	)
	if err != nil {
		return err
	}
	return Seed(db)
}

// seed table below: which permission groups each seed role receives
var seedRoles = map[string][]string{
	model.RoleOwner:  {"add", "read", "update", "delete"},
	model.RoleAdmin:  {"add", "read", "update", "delete"},
	model.RoleMember: {"read"},
}

var seedEntities = []string{"project", "team", "task", "comment", "member"}

// Seed inserts the seed roles and their permissions. It is idempotent and
// safe to run on every startup.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		permsByAction := make(map[string][]model.Permission)
		for _, entity := range seedEntities {
			for _, action := range []string{"add", "read", "update", "delete"} {
				perm := model.Permission{
					Name:        fmt.Sprintf("%s_%s", action, entity),
					Description: fmt.Sprintf("can %s %s", action, entity),
				}
				if err := tx.Where(model.Permission{Name: perm.Name}).
					FirstOrCreate(&perm).Error; err != nil {
					return err
				}
				permsByAction[action] = append(permsByAction[action], perm)
			}
		}

		for name, actions := range seedRoles {
			role := model.Role{Name: name}
			if err := tx.Where(model.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
				return err
			}
			var perms []model.Permission
			for _, action := range actions {
				perms = append(perms, permsByAction[action]...)
			}
			// Members can also write tasks and comments
			if name == model.RoleMember {
				for _, p := range permsByAction["add"] {
					if p.Name == "add_task" || p.Name == "add_comment" {
						perms = append(perms, p)
					}
				}
				for _, p := range permsByAction["update"] {
					if p.Name == "update_task" || p.Name == "update_comment" {
						perms = append(perms, p)
					}
				}
			}
			if err := tx.Model(&role).Association("Permissions").Replace(perms); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}
