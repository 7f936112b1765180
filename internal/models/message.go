package models

import "time"

// MessageKind distinguishes text from recorded voice messages
type MessageKind string

const (
	MessageText  MessageKind = "text"
	MessageVoice MessageKind = "voice"
)

// Message represents a message between two portal users. Voice
// messages carry a stored file path instead of a body.
type Message struct {
	ID          string      `json:"id"`
	SenderID    int64       `json:"sender_id"`
	RecipientID int64       `json:"recipient_id"`
	Kind        MessageKind `json:"kind"`
	Body        string      `json:"body,omitempty"`
	FilePath    string      `json:"-"` // server-side storage path
	CreatedAt   time.Time   `json:"created_at"`
	ReadAt      *time.Time  `json:"read_at,omitempty"`
}

// SendMessageRequest represents the request body for a text message
type SendMessageRequest struct {
	RecipientID int64  `json:"recipient_id"`
	Body        string `json:"body"`
}
