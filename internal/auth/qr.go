package auth

import (
	"errors"
	"time"

	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
)

// QRGenerateResponse is returned to the device that will display the code
type QRGenerateResponse struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	TTLSeconds int       `json:"ttl_seconds"`
}

// QRTTL returns the configured token lifetime
func (s *Service) QRTTL() time.Duration {
	seconds, err := s.settingsRepo.GetInt(database.SettingQRTTLSeconds)
	if err != nil || seconds <= 0 {
		seconds = defaultQRTTLSeconds
	}
	return time.Duration(seconds) * time.Second
}

// GenerateQR mints a fresh login token for display as a scannable code
func (s *Service) GenerateQR(originIP, originAgent string) (*QRGenerateResponse, error) {
	ttl := s.QRTTL()

	token, qr, err := s.qrRepo.Create(ttl, originIP, originAgent)
	if err != nil {
		return nil, err
	}

	return &QRGenerateResponse{
		Token:      token,
		ExpiresAt:  qr.ExpiresAt,
		TTLSeconds: int(ttl / time.Second),
	}, nil
}

// QRStatus reports the externally visible state of a token. Pure read.
//
// A row that is both used and past its expiry still reports used: a
// token redeemed in the last instant before expiry must keep reading
// as used, never flip to expired.
func (s *Service) QRStatus(token string) (*models.QRStatusResponse, error) {
	if token == "" {
		return nil, ErrInvalidInput
	}

	qr, err := s.qrRepo.GetByToken(token)
	if err != nil {
		if errors.Is(err, database.ErrQRTokenNotFound) {
			return &models.QRStatusResponse{Status: models.QRStatusNotFound}, nil
		}
		return nil, err
	}

	if qr.Used {
		resp := &models.QRStatusResponse{Status: models.QRStatusUsed}
		if qr.BoundUserID != nil {
			if user, err := s.userRepo.GetByID(*qr.BoundUserID); err == nil {
				summary := user.Summary()
				resp.User = &summary
			}
		}
		return resp, nil
	}

	remaining := time.Until(qr.ExpiresAt)
	if remaining <= 0 {
		return &models.QRStatusResponse{Status: models.QRStatusExpired}, nil
	}

	return &models.QRStatusResponse{
		Status:           models.QRStatusWaiting,
		RemainingSeconds: int(remaining / time.Second),
	}, nil
}

// VerifyQR redeems a token on behalf of the scanned identity and logs
// that identity in on the issuing device.
//
// The identity is resolved before the token is touched, so a lookup
// failure cannot consume an otherwise valid token; the correct account
// can still retry. Redemption itself is a single conditional update in
// the store; under concurrent attempts exactly one caller wins and the
// rest see database.ErrQRTokenUsed.
func (s *Service) VerifyQR(token, username, ipAddress, userAgent string) (*LoginResponse, error) {
	if token == "" || username == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetActiveByUsername(username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	if err := s.qrRepo.Redeem(token, user.ID); err != nil {
		return nil, err
	}

	return s.establishSession(user, ipAddress, userAgent)
}
