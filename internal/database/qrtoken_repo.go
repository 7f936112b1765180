package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"schoolhub-backend/internal/models"
)

var (
	ErrQRTokenNotFound = errors.New("qr token not found")
	ErrQRTokenExpired  = errors.New("qr token expired")
	ErrQRTokenUsed     = errors.New("qr token already used")
)

// QRTokenRepo handles QR login token database operations
type QRTokenRepo struct{}

// NewQRTokenRepo creates a new QR token repository
func NewQRTokenRepo() *QRTokenRepo {
	return &QRTokenRepo{}
}

// Create mints a new unused token valid for ttl and returns the plain
// token. Only the SHA-256 hash is stored. A hash collision trips the
// UNIQUE constraint and surfaces as an error rather than overwriting
// the existing row; with 256 bits of entropy the caller may simply
// retry.
func (r *QRTokenRepo) Create(ttl time.Duration, originIP, originAgent string) (string, *models.QRToken, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", nil, err
	}
	token := hex.EncodeToString(tokenBytes)

	now := time.Now()
	qr := &models.QRToken{
		TokenHash:   HashToken(token),
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		OriginIP:    originIP,
		OriginAgent: originAgent,
	}

	result, err := DB.Exec(`
		INSERT INTO qr_tokens (token_hash, created_at, expires_at, origin_ip, origin_agent)
		VALUES (?, ?, ?, ?, ?)
	`, qr.TokenHash, qr.CreatedAt, qr.ExpiresAt, qr.OriginIP, qr.OriginAgent)
	if err != nil {
		return "", nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, err
	}
	qr.ID = id

	return token, qr, nil
}

// GetByToken retrieves a token row by its plain token. Pure read; the
// row is returned regardless of used/expired state so callers can
// classify it themselves.
func (r *QRTokenRepo) GetByToken(token string) (*models.QRToken, error) {
	qr := &models.QRToken{}
	var boundUserID sql.NullInt64
	var usedAt sql.NullTime
	var originIP, originAgent sql.NullString

	err := DB.QueryRow(`
		SELECT id, token_hash, created_at, expires_at, bound_user_id, used, used_at, origin_ip, origin_agent
		FROM qr_tokens WHERE token_hash = ?
	`, HashToken(token)).Scan(
		&qr.ID, &qr.TokenHash, &qr.CreatedAt, &qr.ExpiresAt,
		&boundUserID, &qr.Used, &usedAt, &originIP, &originAgent,
	)
	if err == sql.ErrNoRows {
		return nil, ErrQRTokenNotFound
	}
	if err != nil {
		return nil, err
	}

	if boundUserID.Valid {
		qr.BoundUserID = &boundUserID.Int64
	}
	if usedAt.Valid {
		qr.UsedAt = &usedAt.Time
	}
	if originIP.Valid {
		qr.OriginIP = originIP.String
	}
	if originAgent.Valid {
		qr.OriginAgent = originAgent.String
	}

	return qr, nil
}

// Redeem atomically binds an unused, unexpired token to a user.
//
// The whole precondition (row exists, not used, not expired) is
// evaluated by the database inside the UPDATE itself; two racing
// redeemers cannot both see used = 0 the way they could with a read
// followed by a write. Exactly one caller observes RowsAffected == 1.
// When zero rows change, the current row is re-read to classify the
// failure: ErrQRTokenNotFound, ErrQRTokenExpired or ErrQRTokenUsed.
func (r *QRTokenRepo) Redeem(token string, userID int64) error {
	now := time.Now()
	result, err := DB.Exec(`
		UPDATE qr_tokens
		SET used = 1, bound_user_id = ?, used_at = ?
		WHERE token_hash = ? AND used = 0 AND expires_at > ?
	`, userID, now, HashToken(token), now)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	// Conditional update matched nothing; find out why.
	qr, err := r.GetByToken(token)
	if err != nil {
		return err // ErrQRTokenNotFound or a storage error
	}
	if qr.Used {
		return ErrQRTokenUsed
	}
	return ErrQRTokenExpired
}

// DeleteExpired removes tokens past their expiry. Space reclamation
// only: expired rows are already unredeemable, so the sweep is safe to
// run at any time.
func (r *QRTokenRepo) DeleteExpired() (int64, error) {
	result, err := DB.Exec("DELETE FROM qr_tokens WHERE expires_at < ?", time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
