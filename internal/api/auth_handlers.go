package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"schoolhub-backend/internal/auth"
	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
)

var authService *auth.Service

// InitAuthService initializes the auth service (call after database is ready)
func InitAuthService() {
	authService = auth.NewService()
}

// loginHandler handles POST /api/auth/login
func loginHandler(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "username and password are required",
		})
	}

	// Get client info
	ipAddress := c.RealIP()
	userAgent := c.Request().UserAgent()

	resp, err := authService.Login(req, ipAddress, userAgent)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "username and password are required",
			})
		case errors.Is(err, auth.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid username or password",
			})
		case errors.Is(err, auth.ErrUserDisabled):
			return c.JSON(http.StatusForbidden, map[string]string{
				"error": "user account is disabled",
			})
		default:
			c.Logger().Error("login error: ", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "authentication failed",
			})
		}
	}

	auth.LoginRateLimiter.RecordSuccess(ipAddress)

	setSessionCookie(c, resp.Token, int(authService.IdleTimeout().Seconds()))

	Audit.Log(resp.User.ID, resp.User.Username, models.ActionLogin, resp.User.Username, nil, ipAddress)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":    resp.User.Summary(),
		"token":   resp.Token,
		"session": resp.Session,
	})
}

// logoutHandler handles POST /api/auth/logout
func logoutHandler(c echo.Context) error {
	token := auth.GetTokenFromRequest(c)
	if token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "no session token",
		})
	}

	// Destroying an absent session is fine; logout is idempotent.
	if err := authService.Logout(token); err != nil {
		c.Logger().Error("logout error: ", err)
	}

	clearSessionCookie(c)

	Audit.LogFromContext(c, models.ActionLogout, "", nil)

	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// checkSessionHandler handles GET /api/auth/me
func checkSessionHandler(c echo.Context) error {
	token := auth.GetTokenFromRequest(c)
	if token == "" {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"valid": false,
			"error": "not authenticated",
		})
	}

	user, session, err := authService.ValidateToken(token)
	if err != nil {
		// Idle-expired, destroyed and never-existed sessions all look
		// the same: re-authenticate.
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"valid": false,
			"error": "session expired or invalid",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"valid":   true,
		"user":    user.Summary(),
		"session": session,
	})
}

// getUserSessions handles GET /api/auth/sessions
func getUserSessions(c echo.Context) error {
	user := getUserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "not authenticated",
		})
	}

	sessions, err := authService.GetUserSessions(user.ID)
	if err != nil {
		c.Logger().Error("get sessions error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to get sessions",
		})
	}

	return c.JSON(http.StatusOK, sessions)
}

// revokeSession handles DELETE /api/auth/sessions/:id
func revokeSession(c echo.Context) error {
	user := getUserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "not authenticated",
		})
	}

	sessionID, err := parseID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid session ID",
		})
	}

	// Verify the session belongs to this user (unless admin)
	sessions, _ := authService.GetUserSessions(user.ID)
	found := false
	for _, s := range sessions {
		if s.ID == sessionID {
			found = true
			break
		}
	}

	if !found && user.Role != models.RoleAdmin {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "cannot revoke another user's session",
		})
	}

	if err := authService.RevokeSession(sessionID); err != nil {
		c.Logger().Error("revoke session error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to revoke session",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "session revoked",
	})
}

// setSessionCookie stores the session token in an HttpOnly cookie
func setSessionCookie(c echo.Context, token string, maxAge int) {
	c.SetCookie(&http.Cookie{
		Name:     "session_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Request().TLS != nil, // Secure if HTTPS
		SameSite: http.SameSiteStrictMode,
		MaxAge:   maxAge,
	})
}

func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     "session_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// classifyQRError maps QR verification errors to HTTP responses so the
// scanning UI can tell "someone already used this code" from "it
// expired" from "it never existed".
func classifyQRError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "token and username are required",
		})
	case errors.Is(err, auth.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "unknown or inactive account",
		})
	case errors.Is(err, database.ErrQRTokenNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "code not found",
		})
	case errors.Is(err, database.ErrQRTokenExpired):
		return c.JSON(http.StatusGone, map[string]string{
			"error": "code has expired",
		})
	case errors.Is(err, database.ErrQRTokenUsed):
		return c.JSON(http.StatusConflict, map[string]string{
			"error": "code was already used",
		})
	default:
		c.Logger().Error("qr verify error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "verification failed",
		})
	}
}
