package models

import "time"

// Session represents an authenticated user session.
//
// Sessions expire on idle: a session is dead once the gap since
// LastActivity exceeds the configured idle timeout. Every validated
// request slides LastActivity forward; there is no fixed end time.
type Session struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	TokenHash    string    `json:"-"` // Never expose in JSON
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
