package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	require.NoError(t, database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")}))
	database.DB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		database.Close()
		database.DB = nil
	})

	return NewService()
}

func createTestAccount(t *testing.T, username, password string) *models.User {
	t.Helper()

	hash, err := HashPassword(password)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: hash,
		Role:         models.RoleStudent,
	}
	require.NoError(t, database.NewUserRepo().Create(user))
	return user
}

func welcomeAwardCount(t *testing.T, userID int64) int {
	t.Helper()

	awards, err := database.NewBadgeRepo().ListAwardsForUser(userID)
	require.NoError(t, err)

	n := 0
	for _, a := range awards {
		if a.BadgeSlug == models.CategoryWelcome {
			n++
		}
	}
	return n
}

func TestLogin(t *testing.T) {
	svc := newTestService(t)
	user := createTestAccount(t, "student1", "correct-horse")

	resp, err := svc.Login(models.LoginRequest{Username: "student1", Password: "correct-horse"}, "10.0.0.1", "browser")
	require.NoError(t, err)
	require.Equal(t, user.ID, resp.User.ID)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, user.ID, resp.Session.UserID)
}

func TestLoginRejections(t *testing.T) {
	svc := newTestService(t)
	createTestAccount(t, "student1", "correct-horse")

	_, err := svc.Login(models.LoginRequest{Username: "student1", Password: "wrong"}, "", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(models.LoginRequest{Username: "ghost", Password: "whatever"}, "", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(models.LoginRequest{Username: "", Password: ""}, "", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginDisabledAccount(t *testing.T) {
	svc := newTestService(t)
	user := createTestAccount(t, "student1", "correct-horse")

	user.Disabled = true
	require.NoError(t, database.NewUserRepo().Update(user))

	_, err := svc.Login(models.LoginRequest{Username: "student1", Password: "correct-horse"}, "", "")
	require.ErrorIs(t, err, ErrUserDisabled)
}

func TestLoginTokensAreDistinct(t *testing.T) {
	svc := newTestService(t)
	createTestAccount(t, "student1", "correct-horse")

	req := models.LoginRequest{Username: "student1", Password: "correct-horse"}
	first, err := svc.Login(req, "", "")
	require.NoError(t, err)
	second, err := svc.Login(req, "", "")
	require.NoError(t, err)

	require.NotEqual(t, first.Token, second.Token)
}

func TestFirstLoginAwardsWelcomeOnce(t *testing.T) {
	svc := newTestService(t)
	user := createTestAccount(t, "student1", "correct-horse")

	req := models.LoginRequest{Username: "student1", Password: "correct-horse"}
	_, err := svc.Login(req, "", "")
	require.NoError(t, err)
	require.Equal(t, 1, welcomeAwardCount(t, user.ID))

	// The second login must not mint a second welcome
	_, err = svc.Login(req, "", "")
	require.NoError(t, err)
	require.Equal(t, 1, welcomeAwardCount(t, user.ID))
}

func TestValidateTokenSlidesWindow(t *testing.T) {
	svc := newTestService(t)
	user := createTestAccount(t, "student1", "correct-horse")

	resp, err := svc.Login(models.LoginRequest{Username: "student1", Password: "correct-horse"}, "", "")
	require.NoError(t, err)

	// Near the end of the idle window the session is still valid, and
	// validating it resets the clock
	stale := time.Now().Add(-(svc.IdleTimeout() - time.Minute))
	_, dberr := database.DB.Exec("UPDATE sessions SET last_activity = ? WHERE id = ?", stale, resp.Session.ID)
	require.NoError(t, dberr)

	got, session, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.WithinDuration(t, time.Now(), session.LastActivity, 5*time.Second)
}

func TestValidateTokenIdleExpiry(t *testing.T) {
	svc := newTestService(t)
	createTestAccount(t, "student1", "correct-horse")

	resp, err := svc.Login(models.LoginRequest{Username: "student1", Password: "correct-horse"}, "", "")
	require.NoError(t, err)

	stale := time.Now().Add(-(svc.IdleTimeout() + time.Second))
	_, dberr := database.DB.Exec("UPDATE sessions SET last_activity = ? WHERE id = ?", stale, resp.Session.ID)
	require.NoError(t, dberr)

	_, _, err = svc.ValidateToken(resp.Token)
	require.ErrorIs(t, err, database.ErrSessionExpired)

	// The row is gone; the identifier never comes back
	_, _, err = svc.ValidateToken(resp.Token)
	require.ErrorIs(t, err, database.ErrSessionNotFound)
}

func TestLogoutIdempotent(t *testing.T) {
	svc := newTestService(t)
	createTestAccount(t, "student1", "correct-horse")

	resp, err := svc.Login(models.LoginRequest{Username: "student1", Password: "correct-horse"}, "", "")
	require.NoError(t, err)

	require.NoError(t, svc.Logout(resp.Token))
	require.NoError(t, svc.Logout(resp.Token))

	_, _, err = svc.ValidateToken(resp.Token)
	require.ErrorIs(t, err, database.ErrSessionNotFound)
}

func TestIdleTimeoutFromSettings(t *testing.T) {
	svc := newTestService(t)

	require.Equal(t, 30*time.Minute, svc.IdleTimeout())

	require.NoError(t, database.NewSettingsRepo().Set(database.SettingSessionIdleMinutes, "45"))
	require.Equal(t, 45*time.Minute, svc.IdleTimeout())
}
