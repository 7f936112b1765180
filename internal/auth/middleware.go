package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"schoolhub-backend/internal/models"
)

// Context keys for storing user data
const (
	ContextKeyUser    = "user"
	ContextKeySession = "session"
)

// RequireAuth middleware checks for valid authentication
func RequireAuth(authSvc *Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := GetTokenFromRequest(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
			}

			user, session, err := authSvc.ValidateToken(token)
			if err != nil {
				// An idle-expired session reads the same as no session
				// at all: re-authenticate.
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "invalid or expired session",
				})
			}

			// Store user and session in context for handlers
			c.Set(ContextKeyUser, user)
			c.Set(ContextKeySession, session)

			return next(c)
		}
	}
}

// RequireRole middleware checks for specific user roles.
// Must be used after RequireAuth.
func RequireRole(roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(ContextKeyUser).(*models.User)
			if !ok || user == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
			}

			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}

			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "insufficient permissions",
			})
		}
	}
}

// RequireAdmin is a convenience middleware that requires admin role
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(models.RoleAdmin)
}

// RequireStaff requires teacher or admin role
func RequireStaff() echo.MiddlewareFunc {
	return RequireRole(models.RoleAdmin, models.RoleTeacher)
}

// GetTokenFromRequest extracts the session token from the request
func GetTokenFromRequest(c echo.Context) string {
	// Try Authorization header first (Bearer token)
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Try cookie
	cookie, err := c.Cookie("session_token")
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	// Try query parameter (used by the QR status websocket and file URLs)
	if token := c.QueryParam("token"); token != "" {
		return token
	}

	return ""
}

// GetUserFromContext retrieves the authenticated user from the context
func GetUserFromContext(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// GetSessionFromContext retrieves the current session from the context
func GetSessionFromContext(c echo.Context) *models.Session {
	session, ok := c.Get(ContextKeySession).(*models.Session)
	if !ok {
		return nil
	}
	return session
}
