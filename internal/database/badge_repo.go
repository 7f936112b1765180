package database

import (
	"database/sql"
	"errors"
	"time"

	"schoolhub-backend/internal/models"
)

var (
	ErrBadgeNotFound    = errors.New("badge not found")
	ErrBadgeExists      = errors.New("badge already exists")
	ErrBadgeSystem      = errors.New("system badges cannot be deleted")
	ErrAwardAlreadyMade = errors.New("badge already awarded to user")
)

// BadgeRepo handles badge catalog and award database operations
type BadgeRepo struct{}

// NewBadgeRepo creates a new badge repository
func NewBadgeRepo() *BadgeRepo {
	return &BadgeRepo{}
}

// Create adds a badge to the catalog
func (r *BadgeRepo) Create(badge *models.Badge) error {
	result, err := DB.Exec(`
		INSERT INTO badges (slug, name, description, icon, system)
		VALUES (?, ?, ?, ?, ?)
	`, badge.Slug, badge.Name, badge.Description, badge.Icon, badge.System)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	badge.ID = id

	return nil
}

func scanBadge(row interface{ Scan(...any) error }) (*models.Badge, error) {
	badge := &models.Badge{}
	var description, icon sql.NullString

	err := row.Scan(
		&badge.ID, &badge.Slug, &badge.Name, &description, &icon,
		&badge.System, &badge.CreatedAt, &badge.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		badge.Description = description.String
	}
	if icon.Valid {
		badge.Icon = icon.String
	}

	return badge, nil
}

const badgeColumns = `id, slug, name, description, icon, system, created_at, updated_at`

// GetByID retrieves a badge by ID
func (r *BadgeRepo) GetByID(id int64) (*models.Badge, error) {
	badge, err := scanBadge(DB.QueryRow(`SELECT `+badgeColumns+` FROM badges WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrBadgeNotFound
	}
	return badge, err
}

// GetBySlug retrieves a badge by its slug
func (r *BadgeRepo) GetBySlug(slug string) (*models.Badge, error) {
	badge, err := scanBadge(DB.QueryRow(`SELECT `+badgeColumns+` FROM badges WHERE slug = ?`, slug))
	if err == sql.ErrNoRows {
		return nil, ErrBadgeNotFound
	}
	return badge, err
}

// List retrieves the full badge catalog
func (r *BadgeRepo) List() ([]*models.Badge, error) {
	rows, err := DB.Query(`SELECT ` + badgeColumns + ` FROM badges ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var badges []*models.Badge
	for rows.Next() {
		badge, err := scanBadge(rows)
		if err != nil {
			return nil, err
		}
		badges = append(badges, badge)
	}

	return badges, rows.Err()
}

// Update updates catalog fields of a badge
func (r *BadgeRepo) Update(badge *models.Badge) error {
	badge.UpdatedAt = time.Now()

	result, err := DB.Exec(`
		UPDATE badges SET name = ?, description = ?, icon = ?, updated_at = ?
		WHERE id = ?
	`, badge.Name, badge.Description, badge.Icon, badge.UpdatedAt, badge.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrBadgeNotFound
	}

	return nil
}

// Delete removes a badge from the catalog. System badges back the
// first-time reward categories and stay.
func (r *BadgeRepo) Delete(id int64) error {
	badge, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if badge.System {
		return ErrBadgeSystem
	}

	_, err = DB.Exec("DELETE FROM badges WHERE id = ?", id)
	return err
}

// GrantOnce awards a badge to a user at most once.
//
// The insert is guarded by the UNIQUE(user_id, badge_id) constraint
// and expressed as INSERT OR IGNORE, so two concurrent grants for the
// same pair cannot both land: the loser's insert changes zero rows and
// is reported as ErrAwardAlreadyMade, not a failure. This is the
// check-then-insert-safe operation the first-time event hook relies on.
func (r *BadgeRepo) GrantOnce(userID, badgeID int64, awardedBy *int64, note string) error {
	result, err := DB.Exec(`
		INSERT OR IGNORE INTO badge_awards (badge_id, user_id, awarded_by, note)
		VALUES (?, ?, ?, ?)
	`, badgeID, userID, awardedBy, note)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAwardAlreadyMade
	}

	return nil
}

// HasAward reports whether the user already holds the badge
func (r *BadgeRepo) HasAward(userID, badgeID int64) (bool, error) {
	var count int
	err := DB.QueryRow(
		"SELECT COUNT(*) FROM badge_awards WHERE user_id = ? AND badge_id = ?",
		userID, badgeID,
	).Scan(&count)
	return count > 0, err
}

// ListAwardsForUser retrieves a user's awards joined with catalog data
func (r *BadgeRepo) ListAwardsForUser(userID int64) ([]*models.BadgeAward, error) {
	rows, err := DB.Query(`
		SELECT a.id, a.badge_id, a.user_id, a.awarded_by, a.note, a.created_at, b.slug, b.name
		FROM badge_awards a
		JOIN badges b ON b.id = a.badge_id
		WHERE a.user_id = ?
		ORDER BY a.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var awards []*models.BadgeAward
	for rows.Next() {
		award := &models.BadgeAward{}
		var awardedBy sql.NullInt64
		var note sql.NullString

		err := rows.Scan(
			&award.ID, &award.BadgeID, &award.UserID, &awardedBy, &note,
			&award.CreatedAt, &award.BadgeSlug, &award.BadgeName,
		)
		if err != nil {
			return nil, err
		}

		if awardedBy.Valid {
			award.AwardedBy = &awardedBy.Int64
		}
		if note.Valid {
			award.Note = note.String
		}

		awards = append(awards, award)
	}

	return awards, rows.Err()
}
