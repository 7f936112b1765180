package database

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"schoolhub-backend/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionRepo handles session database operations.
//
// Sessions are idle-expired: a session whose last_activity is older
// than the idle timeout is dead and its row is removed the next time
// it is looked up. No background timer is involved; expiry is lazy.
type SessionRepo struct{}

// NewSessionRepo creates a new session repository
func NewSessionRepo() *SessionRepo {
	return &SessionRepo{}
}

// Create creates a new session and returns the plain token.
// The token is always freshly generated; an existing session is never
// extended into a new login (session fixation defense).
func (r *SessionRepo) Create(userID int64, ipAddress, userAgent string) (string, *models.Session, error) {
	// Generate random token
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, err
	}
	token := hex.EncodeToString(tokenBytes)

	// Hash the token for storage
	tokenHash := HashToken(token)

	now := time.Now()
	session := &models.Session{
		UserID:       userID,
		TokenHash:    tokenHash,
		StartedAt:    now,
		LastActivity: now,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
	}

	result, err := DB.Exec(`
		INSERT INTO sessions (user_id, token_hash, started_at, last_activity, ip_address, user_agent)
		VALUES (?, ?, ?, ?, ?, ?)
	`, session.UserID, session.TokenHash, session.StartedAt, session.LastActivity, session.IPAddress, session.UserAgent)
	if err != nil {
		return "", nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, err
	}
	session.ID = id

	return token, session, nil
}

// GetByToken retrieves a session by its plain token without touching
// last_activity. Idle-dead sessions are removed and reported expired.
func (r *SessionRepo) GetByToken(token string, idleTimeout time.Duration) (*models.Session, error) {
	session := &models.Session{}

	err := DB.QueryRow(`
		SELECT id, user_id, token_hash, started_at, last_activity, ip_address, user_agent
		FROM sessions WHERE token_hash = ?
	`, HashToken(token)).Scan(
		&session.ID, &session.UserID, &session.TokenHash,
		&session.StartedAt, &session.LastActivity, &session.IPAddress, &session.UserAgent,
	)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}

	// Idle timeout elapsed: the session is terminal, remove the row so
	// the identifier can never be revived.
	if time.Since(session.LastActivity) > idleTimeout {
		r.Delete(session.ID)
		return nil, ErrSessionExpired
	}

	return session, nil
}

// Touch slides last_activity forward for a validated access.
// Concurrent touches on the same session race harmlessly; the field
// only ever moves forward in intent and last-write-wins is fine.
func (r *SessionRepo) Touch(id int64) error {
	_, err := DB.Exec("UPDATE sessions SET last_activity = ? WHERE id = ?", time.Now(), id)
	return err
}

// GetByUserID retrieves all sessions for a user
func (r *SessionRepo) GetByUserID(userID int64) ([]*models.Session, error) {
	rows, err := DB.Query(`
		SELECT id, user_id, token_hash, started_at, last_activity, ip_address, user_agent
		FROM sessions WHERE user_id = ? ORDER BY started_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session := &models.Session{}
		err := rows.Scan(
			&session.ID, &session.UserID, &session.TokenHash,
			&session.StartedAt, &session.LastActivity, &session.IPAddress, &session.UserAgent,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// Delete deletes a session by ID
func (r *SessionRepo) Delete(id int64) error {
	_, err := DB.Exec("DELETE FROM sessions WHERE id = ?", id)
	return err
}

// DeleteByToken deletes a session by its plain token. Deleting an
// already-absent session is not an error; logout is idempotent.
func (r *SessionRepo) DeleteByToken(token string) error {
	_, err := DB.Exec("DELETE FROM sessions WHERE token_hash = ?", HashToken(token))
	return err
}

// DeleteAllForUser deletes all sessions for a user
func (r *SessionRepo) DeleteAllForUser(userID int64) error {
	_, err := DB.Exec("DELETE FROM sessions WHERE user_id = ?", userID)
	return err
}

// DeleteIdle removes all sessions idle past the timeout. Space
// reclamation only; lookup already treats such rows as expired.
func (r *SessionRepo) DeleteIdle(idleTimeout time.Duration) (int64, error) {
	result, err := DB.Exec("DELETE FROM sessions WHERE last_activity < ?", time.Now().Add(-idleTimeout))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountByUserID returns the number of sessions for a user
func (r *SessionRepo) CountByUserID(userID int64) (int, error) {
	var count int
	err := DB.QueryRow("SELECT COUNT(*) FROM sessions WHERE user_id = ?", userID).Scan(&count)
	return count, err
}

// HashToken creates a SHA-256 hash of a token for at-rest storage
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
