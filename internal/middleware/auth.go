package middleware

import (
	"net/http"
	"strings"

	"collab-service/internal/auth"
	"collab-service/pkg/database"
	"collab-service/pkg/logger"
	"collab-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Context keys set for downstream handlers.
const (
	CurrentUserKey  = "current_user"
	CurrentTokenKey = "current_token"
)

// AuthMiddleware validates the bearer token and resolves the principal.
// The error body is uniform on purpose; only the logs distinguish the
// failure cause.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromEcho(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		tokenString := parts[1]

		// Validate the token and load the user it names
		user, err := auth.ResolveUser(database.GetDB(), tokenString)
		if err != nil {
			log.Error("Failed to authenticate request", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store principal info in context for later use
		c.Set("user_id", user.ID)
		c.Set(CurrentUserKey, user)
		c.Set(CurrentTokenKey, tokenString)

		return next(c)
	}
}
