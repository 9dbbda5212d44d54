package models

import "time"

// MaxMessageLength bounds message content in characters.
const MaxMessageLength = 5000

// Message is a single directed note between two users.
type Message struct {
	ID          string    `db:"id" json:"id"`
	SenderID    string    `db:"sender_id" json:"sender"`
	RecipientID string    `db:"recipient_id" json:"recipient"`
	Content     string    `db:"content" json:"content"`
	CreatedAt   time.Time `db:"created_at" json:"timestamp"`
}

// MessageDetail adds the usernames of both parties.
type MessageDetail struct {
	Message
	SenderUsername    string `db:"sender_username" json:"sender_username"`
	RecipientUsername string `db:"recipient_username" json:"recipient_username"`
}

// MessageRequest carries user-supplied content for send and reply.
type MessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}
