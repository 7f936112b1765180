package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"schoolhub-backend/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepo handles message database operations
type MessageRepo struct{}

// NewMessageRepo creates a new message repository
func NewMessageRepo() *MessageRepo {
	return &MessageRepo{}
}

// Create stores a new message. The ID is generated here.
func (r *MessageRepo) Create(msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := DB.Exec(`
		INSERT INTO messages (id, sender_id, recipient_id, kind, body, file_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.SenderID, msg.RecipientID, msg.Kind, msg.Body, msg.FilePath, msg.CreatedAt)
	return err
}

// GetByID retrieves a single message
func (r *MessageRepo) GetByID(id string) (*models.Message, error) {
	msg := &models.Message{}
	var body, filePath sql.NullString
	var readAt sql.NullTime

	err := DB.QueryRow(`
		SELECT id, sender_id, recipient_id, kind, body, file_path, created_at, read_at
		FROM messages WHERE id = ?
	`, id).Scan(
		&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Kind,
		&body, &filePath, &msg.CreatedAt, &readAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	if body.Valid {
		msg.Body = body.String
	}
	if filePath.Valid {
		msg.FilePath = filePath.String
	}
	if readAt.Valid {
		msg.ReadAt = &readAt.Time
	}

	return msg, nil
}

// ListForUser retrieves messages sent or received by a user, newest first
func (r *MessageRepo) ListForUser(userID int64, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := DB.Query(`
		SELECT id, sender_id, recipient_id, kind, body, file_path, created_at, read_at
		FROM messages
		WHERE sender_id = ? OR recipient_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		var body, filePath sql.NullString
		var readAt sql.NullTime

		err := rows.Scan(
			&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Kind,
			&body, &filePath, &msg.CreatedAt, &readAt,
		)
		if err != nil {
			return nil, err
		}

		if body.Valid {
			msg.Body = body.String
		}
		if filePath.Valid {
			msg.FilePath = filePath.String
		}
		if readAt.Valid {
			msg.ReadAt = &readAt.Time
		}

		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// MarkRead records the first read of a message. Only the recipient's
// first read wins; later calls leave read_at untouched.
func (r *MessageRepo) MarkRead(id string, recipientID int64) error {
	_, err := DB.Exec(`
		UPDATE messages SET read_at = ?
		WHERE id = ? AND recipient_id = ? AND read_at IS NULL
	`, time.Now(), id, recipientID)
	return err
}

// CountSentBy returns how many messages a user has sent
func (r *MessageRepo) CountSentBy(userID int64) (int, error) {
	var count int
	err := DB.QueryRow("SELECT COUNT(*) FROM messages WHERE sender_id = ?", userID).Scan(&count)
	return count, err
}
