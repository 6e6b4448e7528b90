package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mydrawer/mydrawer-server/internal/repository"
)

// ConversationRepository implements repository.ConversationRepository using PostgreSQL
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository creates a new PostgreSQL conversation repository
func NewConversationRepository(db *sqlx.DB) repository.ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create creates a new conversation
func (r *ConversationRepository) Create(ctx context.Context, conversation repository.Conversation) (string, error) {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}
	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now

	query := `
		INSERT INTO conversations (id, title, model_id, provider_id, folder_id, order_index, created_at, updated_at)
		VALUES (:id, :title, :model_id, :provider_id, :folder_id, :order_index, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, conversation)
	if err != nil {
		return "", err
	}

	return conversation.ID, nil
}

// Get retrieves a conversation by id
func (r *ConversationRepository) Get(ctx context.Context, id string) (*repository.Conversation, error) {
	var conversation repository.Conversation
	query := `
		SELECT id, title, model_id, provider_id, folder_id, order_index, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &conversation, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

// List returns all conversations, most recently updated first
func (r *ConversationRepository) List(ctx context.Context) ([]repository.Conversation, error) {
	var conversations []repository.Conversation
	query := `
		SELECT id, title, model_id, provider_id, folder_id, order_index, created_at, updated_at
		FROM conversations
		ORDER BY order_index ASC, updated_at DESC
	`

	err := r.db.SelectContext(ctx, &conversations, query)
	if err != nil {
		return nil, err
	}

	return conversations, nil
}

// UpdateTitle renames a conversation
func (r *ConversationRepository) UpdateTitle(ctx context.Context, id string, title string) error {
	query := "UPDATE conversations SET title = $1, updated_at = $2 WHERE id = $3"
	_, err := r.db.ExecContext(ctx, query, title, time.Now(), id)
	return err
}

// UpdateModel switches the conversation's model/provider pair
func (r *ConversationRepository) UpdateModel(ctx context.Context, id string, modelID, providerID string) error {
	query := "UPDATE conversations SET model_id = $1, provider_id = $2, updated_at = $3 WHERE id = $4"
	_, err := r.db.ExecContext(ctx, query, modelID, providerID, time.Now(), id)
	return err
}

// UpdateFolder moves a conversation into a folder (nil moves it to the root)
func (r *ConversationRepository) UpdateFolder(ctx context.Context, id string, folderID *string) error {
	query := "UPDATE conversations SET folder_id = $1 WHERE id = $2"
	_, err := r.db.ExecContext(ctx, query, folderID, id)
	return err
}

// Delete removes a conversation; messages cascade at the database level
func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	query := "DELETE FROM conversations WHERE id = $1"
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
