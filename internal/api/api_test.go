package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"schoolhub-backend/internal/auth"
	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	require.NoError(t, database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")}))
	database.DB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		database.Close()
		database.DB = nil
	})

	// The limiter is global; forget the test client between tests
	auth.LoginRateLimiter.RecordSuccess("192.0.2.1")

	e := echo.New()
	RegisterRoutes(e.Group("/api"), auth.NewService(), t.TempDir())
	return e
}

func createAPIUser(t *testing.T, username, password string, role models.Role) *models.User {
	t.Helper()

	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		Role:         role,
	}
	require.NoError(t, database.NewUserRepo().Create(user))
	return user
}

func doJSON(t *testing.T, e *echo.Echo, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var parsed map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	}
	return rec, parsed
}

func loginAs(t *testing.T, e *echo.Echo, username, password string) string {
	t.Helper()

	rec, body := doJSON(t, e, http.MethodPost, "/api/auth/login",
		map[string]string{"username": username, "password": password}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec, body := doJSON(t, e, http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
}

func TestLoginLogoutOverHTTP(t *testing.T) {
	e := newTestServer(t)
	createAPIUser(t, "student1", "correct-horse", models.RoleStudent)

	token := loginAs(t, e, "student1", "correct-horse")

	rec, body := doJSON(t, e, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["valid"])

	rec, _ = doJSON(t, e, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = doJSON(t, e, http.MethodGet, "/api/auth/me", nil, token)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, false, body["valid"])

	// Logout of a dead session still reads as success
	rec, _ = doJSON(t, e, http.MethodPost, "/api/auth/logout", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRejectionsOverHTTP(t *testing.T) {
	e := newTestServer(t)
	createAPIUser(t, "student1", "correct-horse", models.RoleStudent)

	rec, _ := doJSON(t, e, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "student1", "password": "wrong"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, e, http.MethodPost, "/api/auth/login",
		map[string]string{"username": "student1"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Reset so later tests are not throttled for this client
	auth.LoginRateLimiter.RecordSuccess("192.0.2.1")
}

func TestQRFlowOverHTTP(t *testing.T) {
	e := newTestServer(t)
	createAPIUser(t, "student1", "correct-horse", models.RoleStudent)
	scannerToken := loginAs(t, e, "student1", "correct-horse")

	// Issuing device mints a code without being logged in
	rec, body := doJSON(t, e, http.MethodPost, "/api/auth/qr", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	qrToken, _ := body["token"].(string)
	require.NotEmpty(t, qrToken)

	rec, body = doJSON(t, e, http.MethodGet, "/api/auth/qr/"+qrToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(models.QRStatusWaiting), body["status"])

	// Scanning device confirms; response carries the issuing device's session
	rec, body = doJSON(t, e, http.MethodPost, "/api/auth/qr/verify",
		map[string]string{"token": qrToken, "username": "student1"}, scannerToken)
	require.Equal(t, http.StatusOK, rec.Code)
	issuedToken, _ := body["token"].(string)
	require.NotEmpty(t, issuedToken)
	require.NotEqual(t, scannerToken, issuedToken)

	rec, body = doJSON(t, e, http.MethodGet, "/api/auth/me", nil, issuedToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["valid"])

	rec, body = doJSON(t, e, http.MethodGet, "/api/auth/qr/"+qrToken, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(models.QRStatusUsed), body["status"])

	// A second confirmation is a conflict, not a second session
	rec, _ = doJSON(t, e, http.MethodPost, "/api/auth/qr/verify",
		map[string]string{"token": qrToken, "username": "student1"}, scannerToken)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestQRVerifyErrorsOverHTTP(t *testing.T) {
	e := newTestServer(t)
	createAPIUser(t, "student1", "correct-horse", models.RoleStudent)
	scannerToken := loginAs(t, e, "student1", "correct-horse")

	// Verification requires a logged-in scanner
	rec, _ := doJSON(t, e, http.MethodPost, "/api/auth/qr/verify",
		map[string]string{"token": "whatever", "username": "student1"}, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = doJSON(t, e, http.MethodPost, "/api/auth/qr/verify",
		map[string]string{"token": "never-issued", "username": "student1"}, scannerToken)
	require.Equal(t, http.StatusNotFound, rec.Code)

	expired, _, err := database.NewQRTokenRepo().Create(-time.Second, "", "")
	require.NoError(t, err)
	rec, _ = doJSON(t, e, http.MethodPost, "/api/auth/qr/verify",
		map[string]string{"token": expired, "username": "student1"}, scannerToken)
	require.Equal(t, http.StatusGone, rec.Code)

	rec, body := doJSON(t, e, http.MethodGet, "/api/auth/qr/"+expired, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(models.QRStatusExpired), body["status"])
}

func TestQRStatusUnknownToken(t *testing.T) {
	e := newTestServer(t)

	rec, body := doJSON(t, e, http.MethodGet, "/api/auth/qr/never-issued", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(models.QRStatusNotFound), body["status"])
}
