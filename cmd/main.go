package main

import (
	"collab-service/internal/handler"
	"collab-service/internal/mailer"
	"collab-service/internal/middleware"
	"collab-service/pkg/config"
	"collab-service/pkg/database"
	"collab-service/pkg/jwtutil"
	"collab-service/pkg/logger"
	"collab-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "collab-service",
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting collaboration service...", cfg.LogConfig()...)

	// Initialize database
	if err := database.Initialize(database.DBConfig{
		DSN:             cfg.DB.GetDSN(),
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		LogLevel:        cfg.DB.LogLevel,
	}); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility with the process-wide signing key
	jwtutil.Initialize(&jwtutil.Config{
		SigningKey:    cfg.JWT.SigningKey,
		ExpirySeconds: cfg.JWT.ExpirySeconds,
	})
	log.Info("JWT utility initialized")

	// Wire the invitation mailer into the handlers
	handler.Initialize(mailer.New(&cfg.SMTP))
	log.Info("Mailer initialized")

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes
	authGroup := e.Group("/auth")
	authGroup.POST("/register", handler.Register)
	authGroup.POST("/login", handler.Login)
	authGroup.POST("/logout", handler.Logout, middleware.AuthMiddleware)

	// API routes - all require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Projects and project memberships
	projects := api.Group("/projects")
	projects.POST("", handler.CreateProject)
	projects.GET("", handler.ListProjects)
	projects.GET("/:id", handler.GetProject)
	projects.DELETE("/:id", handler.DeleteProject)
	projects.POST("/:id/invite", handler.InviteToProject)
	projects.POST("/accept-invite", handler.AcceptProjectInvite)
	projects.POST("/decline-invite", handler.DeclineProjectInvite)
	projects.POST("/assign-role", handler.AssignProjectRole)
	projects.DELETE("/:id/remove-user/:user_id", handler.RemoveProjectUser)

	// Teams and team memberships
	teams := api.Group("/teams")
	teams.POST("", handler.CreateTeam)
	teams.POST("/:id/invite", handler.InviteToTeam)
	teams.POST("/accept-invite", handler.AcceptTeamInvite)
	teams.POST("/assign-role", handler.AssignTeamRole)
	api.DELETE("/memberships/:id", handler.DeleteMembership)

	// Tasks and comments
	tasks := api.Group("/tasks")
	tasks.POST("", handler.CreateTask)
	tasks.PATCH("/:id", handler.UpdateTask)
	tasks.DELETE("/:id", handler.DeleteTask)
	tasks.POST("/:id/comments", handler.CreateComment)
	api.DELETE("/comments/:id", handler.DeleteComment)

	// Roles and permissions
	roles := api.Group("/roles")
	roles.POST("", handler.CreateRole)
	roles.GET("", handler.ListRoles)

	// Get server port from configuration
	port := cfg.Server.Port

	// Start server
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
