package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message statuses
const (
	StatusPending   = "pending"
	StatusStreaming = "streaming"
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Conversation represents a chat conversation
type Conversation struct {
	ID         string         `db:"id" json:"id"`
	Title      string         `db:"title" json:"title"`
	ModelID    string         `db:"model_id" json:"model_id"`
	ProviderID string         `db:"provider_id" json:"provider_id"`
	FolderID   sql.NullString `db:"folder_id" json:"-"`
	OrderIndex int            `db:"order_index" json:"order_index"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updated_at"`
}

// Folder groups conversations in the sidebar
type Folder struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	OrderIndex int       `db:"order_index" json:"order_index"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Attachment is a file attached to a message. It belongs to exactly one
// message and is immutable after creation.
type Attachment struct {
	Path       string `json:"path,omitempty"`
	Name       string `json:"name"`
	MimeType   string `json:"mimeType"`
	SizeBytes  int64  `json:"sizeBytes"`
	InlineData string `json:"inlineData,omitempty"` // base64
}

// Attachments is stored as a JSONB column
type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *Attachments) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	case nil:
		*a = nil
		return nil
	}
	return fmt.Errorf("unsupported attachments column type %T", src)
}

// MessageMetadata carries per-message bookkeeping. IsSummary marks a synthetic
// summary produced by compaction; IsCompacted marks messages a summary has
// replaced (kept in storage, hidden from the model).
type MessageMetadata struct {
	Model       string `json:"model,omitempty"`
	TokenCount  int    `json:"tokenCount,omitempty"`
	IsSummary   bool   `json:"isSummary,omitempty"`
	IsCompacted bool   `json:"isCompacted,omitempty"`
}

func (m MessageMetadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

func (m *MessageMetadata) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	case nil:
		*m = MessageMetadata{}
		return nil
	}
	return fmt.Errorf("unsupported metadata column type %T", src)
}

// Message represents a chat message. Content holds plain text, or a JSON
// array of content parts for messages that carried attachments. CreatedAt is
// the truncation cursor: strictly non-decreasing within a conversation.
type Message struct {
	ID             string          `db:"id" json:"id"`
	ConversationID string          `db:"conversation_id" json:"conversation_id"`
	Role           string          `db:"role" json:"role"`
	Content        string          `db:"content" json:"content"`
	Attachments    Attachments     `db:"attachments" json:"attachments,omitempty"`
	Status         string          `db:"status" json:"status"`
	Metadata       MessageMetadata `db:"metadata" json:"metadata"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// MessageRepository defines message storage operations
type MessageRepository interface {
	Create(ctx context.Context, message Message) (string, error)
	GetByID(ctx context.Context, id string) (*Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]Message, error)
	UpdateContent(ctx context.Context, id string, content string) error
	UpdateMetadata(ctx context.Context, id string, metadata MessageMetadata) error
	// DeleteAfter removes every message in the conversation with a timestamp
	// strictly greater than ts.
	DeleteAfter(ctx context.Context, conversationID string, ts time.Time) error
}

// ConversationRepository defines conversation storage operations
type ConversationRepository interface {
	Create(ctx context.Context, conversation Conversation) (string, error)
	Get(ctx context.Context, id string) (*Conversation, error)
	List(ctx context.Context) ([]Conversation, error)
	UpdateTitle(ctx context.Context, id string, title string) error
	UpdateModel(ctx context.Context, id string, modelID, providerID string) error
	UpdateFolder(ctx context.Context, id string, folderID *string) error
	Delete(ctx context.Context, id string) error
}

// FolderRepository defines folder storage operations
type FolderRepository interface {
	Create(ctx context.Context, name string) (string, error)
	List(ctx context.Context) ([]Folder, error)
	Rename(ctx context.Context, id string, name string) error
	Delete(ctx context.Context, id string) error
}
