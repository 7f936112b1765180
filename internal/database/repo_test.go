package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"schoolhub-backend/internal/models"
)

// openTestDB opens a fresh database in a temp dir. Connections are
// capped at one so concurrent test goroutines exercise the SQL-level
// guarantees without tripping sqlite's single-writer busy errors.
func openTestDB(t *testing.T) {
	t.Helper()

	err := Open(Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	DB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		Close()
		DB = nil
	})
}

// createTestUser inserts a user and returns it
func createTestUser(t *testing.T, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		DisplayName:  username,
		PasswordHash: "x",
		Role:         models.RoleStudent,
	}
	require.NoError(t, NewUserRepo().Create(user))
	return user
}

func TestUserRepoCRUD(t *testing.T) {
	openTestDB(t)
	repo := NewUserRepo()

	user := createTestUser(t, "student1")
	require.NotZero(t, user.ID)

	got, err := repo.GetByUsername("student1")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Equal(t, models.RoleStudent, got.Role)

	got.DisplayName = "Student One"
	got.Disabled = true
	require.NoError(t, repo.Update(got))

	_, err = repo.GetActiveByUsername("student1")
	require.ErrorIs(t, err, ErrUserNotFound)

	require.NoError(t, repo.Delete(user.ID))
	_, err = repo.GetByID(user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepoGetActiveByUsername(t *testing.T) {
	openTestDB(t)
	repo := NewUserRepo()

	_, err := repo.GetActiveByUsername("ghost")
	require.ErrorIs(t, err, ErrUserNotFound)

	user := createTestUser(t, "student1")
	got, err := repo.GetActiveByUsername("student1")
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
}
