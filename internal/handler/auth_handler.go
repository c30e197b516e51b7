package handler

import (
	"errors"
	"net/http"
	"time"

	"collab-service/internal/activity"
	"collab-service/internal/auth"
	"collab-service/internal/mailer"
	"collab-service/internal/middleware"
	"collab-service/pkg/database"
	"collab-service/pkg/logger"
	"collab-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var mail *mailer.Mailer

// Initialize wires the shared collaborators the handlers need.
func Initialize(m *mailer.Mailer) {
	mail = m
}

// Register handles new user registration
func Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RegisterCounter.Inc()

	// Parse request
	var req struct {
		Username             string `json:"username"`
		Email                string `json:"email"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		log.Error("Invalid registration data",
			zap.String("username", req.Username),
			zap.Bool("password_provided", req.Password != ""))
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username, email and password are required"})
	}

	if req.Password != req.PasswordConfirmation {
		log.Error("Password confirmation mismatch", zap.String("username", req.Username))
		prometheus.RecordAuthError("password_mismatch")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "passwords do not match"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	user, err := auth.Register(database.GetDB(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrDuplicateUsername):
			log.Error("Username already exists", zap.String("username", req.Username))
			prometheus.RecordAuthError("username_already_exists")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "username already exists"})
		case errors.Is(err, auth.ErrDuplicateEmail):
			log.Error("Email already registered", zap.String("email", req.Email))
			prometheus.RecordAuthError("email_already_exists")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "email already registered"})
		default:
			log.Error("Failed to create user", zap.Error(err))
			prometheus.RecordAuthError("user_creation_failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
		}
	}

	log.Info("User registered", zap.String("username", user.Username))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// Login verifies credentials and returns an access token
func Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	// Parse request
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	user, err := auth.VerifyCredentials(database.GetDB(), req.Username, req.Password)
	if err != nil {
		// Unknown username and wrong password answer identically
		log.Error("Login failed", zap.String("username", req.Username))
		prometheus.RecordAuthError("invalid_credentials")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid credentials"})
	}

	token, err := auth.Issue(user.ID)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.IncreaseActiveTokens()
	log.Info("User logged in", zap.String("username", user.Username))

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
	})
}

// Logout revokes the caller's bearer token
func Logout(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LogoutCounter.Inc()

	token, _ := c.Get(middleware.CurrentTokenKey).(string)
	userID, _ := c.Get("user_id").(uint)

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := auth.Revoke(database.GetDB(), token); err != nil {
		log.Error("Failed to revoke token", zap.Error(err))
		prometheus.RecordAuthError("token_revocation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}

	activity.Record(database.GetDB(), userID, "user", userID, "logout", nil)
	prometheus.DecreaseActiveTokens()
	log.Info("User logged out", zap.Uint("user_id", userID))

	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// MetricsHandler exposes the Prometheus metrics endpoint
func MetricsHandler(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
