package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/training-api/internal/models"
)

const (
	messageInsert = `INSERT INTO messages (id, sender_id, recipient_id, content, created_at) VALUES (:id, :sender_id, :recipient_id, :content, :created_at)`

	messageDetailSelect = `SELECT msg.id, msg.sender_id, msg.recipient_id, msg.content, msg.created_at, s.username AS sender_username, r.username AS recipient_username FROM messages msg JOIN users s ON s.id = msg.sender_id JOIN users r ON r.id = msg.recipient_id`
)

// MessageRepository persists direct messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs the repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func prepareMessage(m *models.Message, now time.Time) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
}

// Create stores a single message.
func (r *MessageRepository) Create(ctx context.Context, m *models.Message) error {
	prepareMessage(m, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, messageInsert, m); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// CreateBatch stores every message or none of them.
func (r *MessageRepository) CreateBatch(ctx context.Context, messages []*models.Message) (err error) {
	if len(messages) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin message batch: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for _, m := range messages {
		prepareMessage(m, now)
		if _, err = tx.NamedExecContext(ctx, messageInsert, m); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit message batch: %w", err)
	}
	return nil
}

// FindForRecipient fetches a message only when it is addressed to recipientID.
func (r *MessageRepository) FindForRecipient(ctx context.Context, id, recipientID string) (*models.Message, error) {
	const query = `SELECT id, sender_id, recipient_id, content, created_at FROM messages WHERE id = $1 AND recipient_id = $2`
	var m models.Message
	if err := r.db.GetContext(ctx, &m, query, id, recipientID); err != nil {
		if isNotFound(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &m, nil
}

// Inbox returns messages received by the user, newest first.
func (r *MessageRepository) Inbox(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	var items []models.MessageDetail
	query := messageDetailSelect + " WHERE msg.recipient_id = $1 ORDER BY msg.created_at DESC, msg.id DESC"
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	return items, nil
}

// Thread returns messages sent or received by the user, oldest first.
func (r *MessageRepository) Thread(ctx context.Context, userID string) ([]models.MessageDetail, error) {
	var items []models.MessageDetail
	query := messageDetailSelect + " WHERE msg.sender_id = $1 OR msg.recipient_id = $1 ORDER BY msg.created_at ASC, msg.id ASC"
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	return items, nil
}

// Count returns the number of stored messages.
func (r *MessageRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM messages`); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return total, nil
}
