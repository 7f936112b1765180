package models

import "time"

// QRTokenStatus is the externally visible state of a login token
type QRTokenStatus string

const (
	QRStatusWaiting  QRTokenStatus = "waiting"
	QRStatusUsed     QRTokenStatus = "used"
	QRStatusExpired  QRTokenStatus = "expired"
	QRStatusNotFound QRTokenStatus = "not_found"
)

// QRToken represents a single-use cross-device login token.
//
// The plain token never touches the database; only its SHA-256 hash is
// stored. A token is redeemed at most once: the Used flag flips
// false→true in a single conditional update, never via read-then-write.
type QRToken struct {
	ID          int64      `json:"id"`
	TokenHash   string     `json:"-"` // Never expose in JSON
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	BoundUserID *int64     `json:"bound_user_id,omitempty"`
	Used        bool       `json:"used"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	OriginIP    string     `json:"origin_ip,omitempty"`
	OriginAgent string     `json:"origin_agent,omitempty"`
}

// QRStatusResponse is returned to the device polling a token
type QRStatusResponse struct {
	Status           QRTokenStatus `json:"status"`
	RemainingSeconds int           `json:"remaining_seconds,omitempty"`
	User             *UserSummary  `json:"user,omitempty"`
}
