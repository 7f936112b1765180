package models

import "time"

// AuditLog represents a record of user actions
type AuditLog struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Details   string    `json:"details"` // JSON string
	IPAddress string    `json:"ip_address"`
}

// AuditFilter narrows audit log listings
type AuditFilter struct {
	UserID       *int64
	Action       string
	ActionPrefix string
	StartTime    time.Time
	EndTime      time.Time
	Limit        int
	Offset       int
}

// Common audit actions
const (
	ActionLogin       = "auth.login"
	ActionLogout      = "auth.logout"
	ActionQRGenerate  = "auth.qr.generate"
	ActionQRVerify    = "auth.qr.verify"
	ActionUserCreate  = "user.create"
	ActionUserUpdate  = "user.update"
	ActionUserDelete  = "user.delete"
	ActionBadgeCreate = "badge.create"
	ActionBadgeUpdate = "badge.update"
	ActionBadgeDelete = "badge.delete"
	ActionBadgeAward  = "badge.award"
	ActionMessageSend = "message.send"
)
