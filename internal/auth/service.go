package auth

import (
	"errors"
	"time"

	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
	"schoolhub-backend/internal/rewards"
)

var (
	ErrInvalidInput       = errors.New("missing or malformed input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user account is disabled")
	ErrUnauthorized       = errors.New("identity does not resolve to an active account")
)

// Default timeouts, used when the settings table is unreadable
const (
	defaultIdleMinutes  = 30
	defaultQRTTLSeconds = 300
)

// Service handles authentication logic
type Service struct {
	userRepo     *database.UserRepo
	sessionRepo  *database.SessionRepo
	qrRepo       *database.QRTokenRepo
	settingsRepo *database.SettingsRepo
	firstTime    *rewards.Hook
}

// NewService creates a new auth service
func NewService() *Service {
	return &Service{
		userRepo:     database.NewUserRepo(),
		sessionRepo:  database.NewSessionRepo(),
		qrRepo:       database.NewQRTokenRepo(),
		settingsRepo: database.NewSettingsRepo(),
		firstTime:    rewards.NewHook(),
	}
}

// LoginResponse represents a successful login over either path
type LoginResponse struct {
	User    *models.User    `json:"user"`
	Token   string          `json:"token"`
	Session *models.Session `json:"session"`
}

// IdleTimeout returns the configured session idle timeout
func (s *Service) IdleTimeout() time.Duration {
	minutes, err := s.settingsRepo.GetInt(database.SettingSessionIdleMinutes)
	if err != nil || minutes <= 0 {
		minutes = defaultIdleMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// Login authenticates a user with local credentials and creates a
// session. On a user's very first login the welcome reward fires.
func (s *Service) Login(req models.LoginRequest, ipAddress, userAgent string) (*LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.GetByUsername(req.Username)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !VerifyPassword(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}

	return s.establishSession(user, ipAddress, userAgent)
}

// establishSession creates a brand-new session for an authenticated
// user, evicting the oldest one if the per-user limit is reached, and
// fires the first-login hook. Shared by the password and QR paths.
func (s *Service) establishSession(user *models.User, ipAddress, userAgent string) (*LoginResponse, error) {
	maxSessions, err := s.settingsRepo.GetInt(database.SettingSessionMaxPerUser)
	if err != nil {
		maxSessions = 0
	}
	if maxSessions > 0 {
		count, _ := s.sessionRepo.CountByUserID(user.ID)
		if count >= maxSessions {
			sessions, _ := s.sessionRepo.GetByUserID(user.ID)
			if len(sessions) > 0 {
				s.sessionRepo.Delete(sessions[len(sessions)-1].ID)
			}
		}
	}

	token, session, err := s.sessionRepo.Create(user.ID, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	s.userRepo.UpdateLastLogin(user.ID)

	// Reward failures never block a login.
	s.firstTime.FireFirstLogin(user.ID)

	return &LoginResponse{
		User:    user,
		Token:   token,
		Session: session,
	}, nil
}

// Logout invalidates a session. Idempotent: logging out a session that
// is already gone succeeds.
func (s *Service) Logout(token string) error {
	return s.sessionRepo.DeleteByToken(token)
}

// ValidateToken validates a session token, slides the idle window and
// returns the user. An idle-expired session behaves exactly like a
// missing one from the caller's point of view.
func (s *Service) ValidateToken(token string) (*models.User, *models.Session, error) {
	session, err := s.sessionRepo.GetByToken(token, s.IdleTimeout())
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.GetByID(session.UserID)
	if err != nil {
		return nil, nil, err
	}

	if user.Disabled {
		return nil, nil, ErrUserDisabled
	}

	if err := s.sessionRepo.Touch(session.ID); err != nil {
		return nil, nil, err
	}
	session.LastActivity = time.Now()

	return user, session, nil
}

// GetUserSessions returns all sessions for a user
func (s *Service) GetUserSessions(userID int64) ([]*models.Session, error) {
	return s.sessionRepo.GetByUserID(userID)
}

// RevokeSession revokes a specific session
func (s *Service) RevokeSession(sessionID int64) error {
	return s.sessionRepo.Delete(sessionID)
}

// RevokeAllSessions revokes all sessions for a user
func (s *Service) RevokeAllSessions(userID int64) error {
	return s.sessionRepo.DeleteAllForUser(userID)
}
