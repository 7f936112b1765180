package database

import (
	"database/sql"
	"errors"
	"time"

	"schoolhub-backend/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserRepo handles user database operations
type UserRepo struct{}

// NewUserRepo creates a new user repository
func NewUserRepo() *UserRepo {
	return &UserRepo{}
}

const userColumns = `id, username, display_name, email, password_hash, role, disabled,
       created_at, updated_at, last_login`

// Create creates a new user
func (r *UserRepo) Create(user *models.User) error {
	result, err := DB.Exec(`
		INSERT INTO users (username, display_name, email, password_hash, role, disabled)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.Username, user.DisplayName, user.Email, user.PasswordHash, user.Role, user.Disabled)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	user.ID = id

	return nil
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var email sql.NullString
	var lastLogin sql.NullTime

	err := row.Scan(
		&user.ID, &user.Username, &user.DisplayName, &email, &user.PasswordHash,
		&user.Role, &user.Disabled, &user.CreatedAt, &user.UpdatedAt, &lastLogin,
	)
	if err != nil {
		return nil, err
	}

	if email.Valid {
		user.Email = email.String
	}
	if lastLogin.Valid {
		user.LastLogin = lastLogin.Time
	}

	return user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepo) GetByID(id int64) (*models.User, error) {
	user, err := scanUser(DB.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return user, err
}

// GetByUsername retrieves a user by username
func (r *UserRepo) GetByUsername(username string) (*models.User, error) {
	user, err := scanUser(DB.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return user, err
}

// GetActiveByUsername resolves a username to an active (not disabled)
// account. Used by the QR verifier before the token is touched.
func (r *UserRepo) GetActiveByUsername(username string) (*models.User, error) {
	user, err := r.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List retrieves all users
func (r *UserRepo) List() ([]*models.User, error) {
	rows, err := DB.Query(`SELECT ` + userColumns + ` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// Update updates a user
func (r *UserRepo) Update(user *models.User) error {
	user.UpdatedAt = time.Now()

	result, err := DB.Exec(`
		UPDATE users SET
			display_name = ?,
			email = ?,
			password_hash = ?,
			role = ?,
			disabled = ?,
			updated_at = ?
		WHERE id = ?
	`, user.DisplayName, user.Email, user.PasswordHash, user.Role, user.Disabled, user.UpdatedAt, user.ID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Delete deletes a user
func (r *UserRepo) Delete(id int64) error {
	result, err := DB.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpdateLastLogin updates the user's last login timestamp
func (r *UserRepo) UpdateLastLogin(id int64) error {
	_, err := DB.Exec("UPDATE users SET last_login = ? WHERE id = ?", time.Now(), id)
	return err
}

// Count returns the total number of users
func (r *UserRepo) Count() (int, error) {
	var count int
	err := DB.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// ExistsByUsername checks if a user with the given username exists
func (r *UserRepo) ExistsByUsername(username string) (bool, error) {
	var count int
	err := DB.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&count)
	return count > 0, err
}
