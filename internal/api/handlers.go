package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"schoolhub-backend/internal/auth"
	"schoolhub-backend/internal/models"
)

// Health check
func healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// parseID parses a numeric path parameter
func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// getUserFromContext retrieves the authenticated user set by RequireAuth
func getUserFromContext(c echo.Context) *models.User {
	return auth.GetUserFromContext(c)
}
