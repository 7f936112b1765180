package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
)

func TestQRHappyPath(t *testing.T) {
	svc := newTestService(t)
	user := createTestAccount(t, "student1", "correct-horse")

	gen, err := svc.GenerateQR("10.0.0.1", "kiosk")
	require.NoError(t, err)
	require.NotEmpty(t, gen.Token)
	require.Equal(t, 300, gen.TTLSeconds)

	status, err := svc.QRStatus(gen.Token)
	require.NoError(t, err)
	require.Equal(t, models.QRStatusWaiting, status.Status)
	require.InDelta(t, 300, status.RemainingSeconds, 5)

	resp, err := svc.VerifyQR(gen.Token, "student1", "10.0.0.2", "phone")
	require.NoError(t, err)
	require.Equal(t, user.ID, resp.User.ID)
	require.NotEmpty(t, resp.Token)

	// The session lands on the issuing flow like a password login would
	got, _, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)

	status, err = svc.QRStatus(gen.Token)
	require.NoError(t, err)
	require.Equal(t, models.QRStatusUsed, status.Status)
	require.NotNil(t, status.User)
	require.Equal(t, "student1", status.User.Username)
}

func TestQRSecondVerifyRejected(t *testing.T) {
	svc := newTestService(t)
	createTestAccount(t, "student1", "correct-horse")
	createTestAccount(t, "student2", "correct-horse")

	gen, err := svc.GenerateQR("", "")
	require.NoError(t, err)

	_, err = svc.VerifyQR(gen.Token, "student1", "", "")
	require.NoError(t, err)

	// Neither the winner nor anyone else gets a second session out of it
	_, err = svc.VerifyQR(gen.Token, "student1", "", "")
	require.ErrorIs(t, err, database.ErrQRTokenUsed)
	_, err = svc.VerifyQR(gen.Token, "student2", "", "")
	require.ErrorIs(t, err, database.ErrQRTokenUsed)
}

func TestQRExpiredToken(t *testing.T) {
	svc := newTestService(t)
	createTestAccount(t, "student1", "correct-horse")

	token, _, err := database.NewQRTokenRepo().Create(-time.Second, "", "")
	require.NoError(t, err)

	status, err := svc.QRStatus(token)
	require.NoError(t, err)
	require.Equal(t, models.QRStatusExpired, status.Status)

	_, err = svc.VerifyQR(token, "student1", "", "")
	require.ErrorIs(t, err, database.ErrQRTokenExpired)

	// Still expired, never flips to used
	status, err = svc.QRStatus(token)
	require.NoError(t, err)
	require.Equal(t, models.QRStatusExpired, status.Status)
}

func TestQRUsedOutranksExpired(t *testing.T) {
	svc := newTestService(t)
	createTestAccount(t, "student1", "correct-horse")

	gen, err := svc.GenerateQR("", "")
	require.NoError(t, err)
	_, err = svc.VerifyQR(gen.Token, "student1", "", "")
	require.NoError(t, err)

	// Push the redeemed token past its expiry; it must keep reading used
	_, dberr := database.DB.Exec("UPDATE qr_tokens SET expires_at = ? WHERE token_hash = ?",
		time.Now().Add(-time.Minute), database.HashToken(gen.Token))
	require.NoError(t, dberr)

	status, err := svc.QRStatus(gen.Token)
	require.NoError(t, err)
	require.Equal(t, models.QRStatusUsed, status.Status)
}

func TestQRStatusNotFound(t *testing.T) {
	svc := newTestService(t)

	status, err := svc.QRStatus("nope")
	require.NoError(t, err)
	require.Equal(t, models.QRStatusNotFound, status.Status)

	_, err = svc.QRStatus("")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestQRVerifyUnknownIdentityLeavesTokenAlive(t *testing.T) {
	svc := newTestService(t)
	createTestAccount(t, "student1", "correct-horse")

	gen, err := svc.GenerateQR("", "")
	require.NoError(t, err)

	_, err = svc.VerifyQR(gen.Token, "ghost", "", "")
	require.ErrorIs(t, err, ErrUnauthorized)

	// A failed identity lookup must not burn the token
	status, err := svc.QRStatus(gen.Token)
	require.NoError(t, err)
	require.Equal(t, models.QRStatusWaiting, status.Status)

	_, err = svc.VerifyQR(gen.Token, "student1", "", "")
	require.NoError(t, err)
}

func TestQRVerifyDisabledIdentity(t *testing.T) {
	svc := newTestService(t)
	user := createTestAccount(t, "student1", "correct-horse")
	user.Disabled = true
	require.NoError(t, database.NewUserRepo().Update(user))

	gen, err := svc.GenerateQR("", "")
	require.NoError(t, err)

	_, err = svc.VerifyQR(gen.Token, "student1", "", "")
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestQRVerifyInvalidInput(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.VerifyQR("", "student1", "", "")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.VerifyQR("tok", "", "", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestQRVerifyConcurrent(t *testing.T) {
	svc := newTestService(t)
	usernames := []string{"alice", "bob", "carol", "dave", "erin", "frank"}
	for _, name := range usernames {
		createTestAccount(t, name, "correct-horse")
	}

	gen, err := svc.GenerateQR("", "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, len(usernames))
	for i, name := range usernames {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			_, results[i] = svc.VerifyQR(gen.Token, name, "", "")
		}(i, name)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, database.ErrQRTokenUsed)
		}
	}
	require.Equal(t, 1, wins, "exactly one device may claim the code")
}

func TestQRTTLFromSettings(t *testing.T) {
	svc := newTestService(t)

	require.NoError(t, database.NewSettingsRepo().Set(database.SettingQRTTLSeconds, "60"))

	gen, err := svc.GenerateQR("", "")
	require.NoError(t, err)
	require.Equal(t, 60, gen.TTLSeconds)
	require.WithinDuration(t, time.Now().Add(time.Minute), gen.ExpiresAt, 5*time.Second)
}
