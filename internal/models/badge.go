package models

import "time"

// Reward categories fired by first-time events. Each maps to a system
// badge seeded by the migrations.
const (
	CategoryWelcome       = "welcome"       // first successful login
	CategoryCommunication = "communication" // first outbound message
)

// Badge represents an entry in the badge catalog
type Badge struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	System      bool      `json:"system"` // seeded, not deletable
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BadgeAward records a badge granted to a user. At most one award per
// (user, badge) pair, enforced by a unique constraint.
type BadgeAward struct {
	ID        int64     `json:"id"`
	BadgeID   int64     `json:"badge_id"`
	UserID    int64     `json:"user_id"`
	AwardedBy *int64    `json:"awarded_by,omitempty"` // null for automatic grants
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// Joined catalog fields, populated by listing queries
	BadgeSlug string `json:"badge_slug,omitempty"`
	BadgeName string `json:"badge_name,omitempty"`
}

// CreateBadgeRequest represents the request body for creating a badge
type CreateBadgeRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// UpdateBadgeRequest represents the request body for updating a badge
type UpdateBadgeRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

// AwardBadgeRequest represents the request body for a manual award
type AwardBadgeRequest struct {
	UserID int64  `json:"user_id"`
	Note   string `json:"note,omitempty"`
}
