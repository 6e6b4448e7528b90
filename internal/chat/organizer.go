package chat

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mydrawer/mydrawer-server/internal/repository"
)

// Sidebar is the navigation snapshot: every folder plus every conversation,
// grouped client-side via Conversation.FolderID.
type Sidebar struct {
	Folders       []repository.Folder       `json:"folders"`
	Conversations []repository.Conversation `json:"conversations"`
}

func (s *Service) GetSidebar(ctx context.Context) (*Sidebar, error) {
	folders, err := s.folders.List(ctx)
	if err != nil {
		return nil, err
	}
	conversations, err := s.conversations.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Sidebar{Folders: folders, Conversations: conversations}, nil
}

// CreateConversation starts a new conversation with the given title and
// model selection. An empty title defaults to "New Chat".
func (s *Service) CreateConversation(ctx context.Context, title, modelID, providerID string) (*repository.Conversation, error) {
	if title == "" {
		title = "New Chat"
	}
	if modelID == "" {
		modelID = s.cfg.DefaultModel
	}
	if providerID == "" {
		providerID = s.cfg.DefaultProvider
	}
	conv := repository.Conversation{
		ID:         uuid.New().String(),
		Title:      title,
		ModelID:    modelID,
		ProviderID: providerID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if _, err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *Service) GetConversation(ctx context.Context, id string) (*repository.Conversation, error) {
	return s.conversations.Get(ctx, id)
}

func (s *Service) GetMessages(ctx context.Context, conversationID string) ([]repository.Message, error) {
	return s.messages.ListByConversation(ctx, conversationID)
}

func (s *Service) RenameConversation(ctx context.Context, id, title string) error {
	return s.conversations.UpdateTitle(ctx, id, title)
}

func (s *Service) SetConversationModel(ctx context.Context, id, modelID, providerID string) error {
	return s.conversations.UpdateModel(ctx, id, modelID, providerID)
}

// MoveConversation assigns the conversation to a folder, or to the root
// when folderID is nil.
func (s *Service) MoveConversation(ctx context.Context, id string, folderID *string) error {
	return s.conversations.UpdateFolder(ctx, id, folderID)
}

func (s *Service) DeleteConversation(ctx context.Context, id string) error {
	return s.conversations.Delete(ctx, id)
}

func (s *Service) CreateFolder(ctx context.Context, name string) (*repository.Folder, error) {
	id, err := s.folders.Create(ctx, name)
	if err != nil {
		return nil, err
	}
	return &repository.Folder{ID: id, Name: name, CreatedAt: time.Now()}, nil
}

func (s *Service) RenameFolder(ctx context.Context, id, name string) error {
	return s.folders.Rename(ctx, id, name)
}

// DeleteFolder removes a folder; its conversations fall back to the root
// via the folder_id foreign key's SET NULL action.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	return s.folders.Delete(ctx, id)
}

// FolderIDString converts a stored nullable folder id to a plain pointer
// for API responses.
func FolderIDString(id sql.NullString) *string {
	if !id.Valid {
		return nil
	}
	return &id.String
}
