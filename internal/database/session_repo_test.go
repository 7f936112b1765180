package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testIdleTimeout = 30 * time.Minute

// backdateSession rewrites last_activity, simulating elapsed idle time
func backdateSession(t *testing.T, id int64, age time.Duration) {
	t.Helper()
	_, err := DB.Exec("UPDATE sessions SET last_activity = ? WHERE id = ?", time.Now().Add(-age), id)
	require.NoError(t, err)
}

func TestSessionCreateAndGet(t *testing.T) {
	openTestDB(t)
	repo := NewSessionRepo()
	user := createTestUser(t, "student1")

	token, session, err := repo.Create(user.ID, "10.0.0.1", "browser")
	require.NoError(t, err)
	require.Len(t, token, 64)
	require.NotEqual(t, token, session.TokenHash)

	got, err := repo.GetByToken(token, testIdleTimeout)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.UserID)
	require.Equal(t, "10.0.0.1", got.IPAddress)
}

func TestSessionGetUnknownToken(t *testing.T) {
	openTestDB(t)

	_, err := NewSessionRepo().GetByToken("nope", testIdleTimeout)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionNeverReusesIdentifiers(t *testing.T) {
	openTestDB(t)
	repo := NewSessionRepo()
	user := createTestUser(t, "student1")

	t1, _, err := repo.Create(user.ID, "", "")
	require.NoError(t, err)
	t2, _, err := repo.Create(user.ID, "", "")
	require.NoError(t, err)
	require.NotEqual(t, t1, t2)
}

func TestSessionIdleTimeout(t *testing.T) {
	openTestDB(t)
	repo := NewSessionRepo()
	user := createTestUser(t, "student1")

	token, session, err := repo.Create(user.ID, "", "")
	require.NoError(t, err)

	// Just inside the window: still alive
	backdateSession(t, session.ID, testIdleTimeout-time.Second)
	_, err = repo.GetByToken(token, testIdleTimeout)
	require.NoError(t, err)

	// Just past the window: expired, and the row is gone so the
	// identifier can never come back to life
	backdateSession(t, session.ID, testIdleTimeout+time.Second)
	_, err = repo.GetByToken(token, testIdleTimeout)
	require.ErrorIs(t, err, ErrSessionExpired)

	_, err = repo.GetByToken(token, testIdleTimeout)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionTouchSlidesWindow(t *testing.T) {
	openTestDB(t)
	repo := NewSessionRepo()
	user := createTestUser(t, "student1")

	token, session, err := repo.Create(user.ID, "", "")
	require.NoError(t, err)

	backdateSession(t, session.ID, testIdleTimeout-time.Minute)
	require.NoError(t, repo.Touch(session.ID))

	got, err := repo.GetByToken(token, testIdleTimeout)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), got.LastActivity, 5*time.Second)
}

func TestSessionDeleteByTokenIdempotent(t *testing.T) {
	openTestDB(t)
	repo := NewSessionRepo()
	user := createTestUser(t, "student1")

	token, _, err := repo.Create(user.ID, "", "")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByToken(token))
	// Destroying an already-absent session is not an error
	require.NoError(t, repo.DeleteByToken(token))

	_, err = repo.GetByToken(token, testIdleTimeout)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionDeleteIdle(t *testing.T) {
	openTestDB(t)
	repo := NewSessionRepo()
	user := createTestUser(t, "student1")

	_, live, err := repo.Create(user.ID, "", "")
	require.NoError(t, err)
	_, dead, err := repo.Create(user.ID, "", "")
	require.NoError(t, err)
	backdateSession(t, dead.ID, testIdleTimeout+time.Minute)

	n, err := repo.DeleteIdle(testIdleTimeout)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	count, err := repo.CountByUserID(live.UserID)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
