package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mydrawer/mydrawer-server/internal/repository"
)

// MessageRepository implements repository.MessageRepository using PostgreSQL
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(db *sqlx.DB) repository.MessageRepository {
	return &MessageRepository{db: db}
}

// Create creates a new message
func (r *MessageRepository) Create(ctx context.Context, message repository.Message) (string, error) {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	if message.Status == "" {
		message.Status = repository.StatusCompleted
	}

	query := `
		INSERT INTO messages (id, conversation_id, role, content, attachments, status, metadata, created_at)
		VALUES (:id, :conversation_id, :role, :content, :attachments, :status, :metadata, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, message)
	if err != nil {
		return "", err
	}

	return message.ID, nil
}

// GetByID retrieves a message by id
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*repository.Message, error) {
	var message repository.Message
	query := `
		SELECT id, conversation_id, role, content, attachments, status, metadata, created_at
		FROM messages
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &message, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByConversation retrieves messages for a conversation, oldest first
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]repository.Message, error) {
	var messages []repository.Message
	query := `
		SELECT id, conversation_id, role, content, attachments, status, metadata, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`

	err := r.db.SelectContext(ctx, &messages, query, conversationID)
	if err != nil {
		return nil, err
	}

	return messages, nil
}

// UpdateContent overwrites a message's content
func (r *MessageRepository) UpdateContent(ctx context.Context, id string, content string) error {
	query := "UPDATE messages SET content = $1 WHERE id = $2"
	_, err := r.db.ExecContext(ctx, query, content, id)
	return err
}

// UpdateMetadata overwrites a message's metadata
func (r *MessageRepository) UpdateMetadata(ctx context.Context, id string, metadata repository.MessageMetadata) error {
	query := "UPDATE messages SET metadata = $1 WHERE id = $2"
	_, err := r.db.ExecContext(ctx, query, metadata, id)
	return err
}

// DeleteAfter removes messages timestamped strictly after ts
func (r *MessageRepository) DeleteAfter(ctx context.Context, conversationID string, ts time.Time) error {
	query := "DELETE FROM messages WHERE conversation_id = $1 AND created_at > $2"
	_, err := r.db.ExecContext(ctx, query, conversationID, ts)
	return err
}
