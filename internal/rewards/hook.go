// Package rewards fires one-time gamification rewards for first-time
// events: the first successful login and the first outbound message.
package rewards

import (
	"errors"
	"fmt"
	"log"

	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
)

// ErrUnknownCategory is returned when no system badge backs a category
var ErrUnknownCategory = errors.New("unknown reward category")

// Hook grants the system badge for a reward category exactly once per
// user. It owns none of the badge data; the at-most-once guarantee
// comes entirely from the reward ledger's constraint-guarded insert,
// so concurrent firings for the same (user, category) pair are safe.
type Hook struct {
	badges *database.BadgeRepo
}

// NewHook creates a first-time event hook
func NewHook() *Hook {
	return &Hook{badges: database.NewBadgeRepo()}
}

// FireIfFirst grants the category's badge if the user does not hold it
// yet. A concurrent or repeated firing is a no-op, not an error: the
// duplicate is logged and swallowed because it is an expected race
// outcome, never a failure of the triggering operation.
func (h *Hook) FireIfFirst(userID int64, category string) error {
	badge, err := h.badges.GetBySlug(category)
	if err != nil {
		if errors.Is(err, database.ErrBadgeNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownCategory, category)
		}
		return err
	}

	err = h.badges.GrantOnce(userID, badge.ID, nil, "first-time event")
	if errors.Is(err, database.ErrAwardAlreadyMade) {
		log.Printf("rewards: %s already granted to user %d", category, userID)
		return nil
	}
	return err
}

// Has reports whether the user already received the category's reward
func (h *Hook) Has(userID int64, category string) (bool, error) {
	badge, err := h.badges.GetBySlug(category)
	if err != nil {
		return false, err
	}
	return h.badges.HasAward(userID, badge.ID)
}

// FireFirstLogin is the trigger point for a successful login, QR or
// password. Failures never block the login; they are logged here.
func (h *Hook) FireFirstLogin(userID int64) {
	if err := h.FireIfFirst(userID, models.CategoryWelcome); err != nil {
		log.Printf("rewards: welcome grant for user %d failed: %v", userID, err)
	}
}

// FireFirstMessage is the trigger point for an outbound message
func (h *Hook) FireFirstMessage(userID int64) {
	if err := h.FireIfFirst(userID, models.CategoryCommunication); err != nil {
		log.Printf("rewards: communication grant for user %d failed: %v", userID, err)
	}
}
