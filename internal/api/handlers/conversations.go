package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mydrawer/mydrawer-server/internal/chat"
	"github.com/mydrawer/mydrawer-server/internal/repository"
)

// ConversationHandlers serves conversation and sidebar endpoints
type ConversationHandlers struct {
	svc *chat.Service
}

func NewConversationHandlers(svc *chat.Service) *ConversationHandlers {
	return &ConversationHandlers{svc: svc}
}

type conversationView struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	ModelID    string  `json:"model_id"`
	ProviderID string  `json:"provider_id"`
	FolderID   *string `json:"folder_id"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  string  `json:"updated_at"`
}

func toConversationView(c repository.Conversation) conversationView {
	return conversationView{
		ID:         c.ID,
		Title:      c.Title,
		ModelID:    c.ModelID,
		ProviderID: c.ProviderID,
		FolderID:   chat.FolderIDString(c.FolderID),
		CreatedAt:  c.CreatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
		UpdatedAt:  c.UpdatedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// GetSidebar handles GET /api/v1/sidebar
func (h *ConversationHandlers) GetSidebar(c *fiber.Ctx) error {
	sidebar, err := h.svc.GetSidebar(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	conversations := make([]conversationView, 0, len(sidebar.Conversations))
	for _, conv := range sidebar.Conversations {
		conversations = append(conversations, toConversationView(conv))
	}
	return c.JSON(fiber.Map{
		"folders":       sidebar.Folders,
		"conversations": conversations,
	})
}

// CreateConversation handles POST /api/v1/conversations
func (h *ConversationHandlers) CreateConversation(c *fiber.Ctx) error {
	var req struct {
		Title      string `json:"title"`
		ModelID    string `json:"model_id"`
		ProviderID string `json:"provider_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	conv, err := h.svc.CreateConversation(c.Context(), req.Title, req.ModelID, req.ProviderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toConversationView(*conv))
}

// GetConversation handles GET /api/v1/conversations/:id
func (h *ConversationHandlers) GetConversation(c *fiber.Ctx) error {
	conv, err := h.svc.GetConversation(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	if conv == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Conversation not found",
		})
	}
	return c.JSON(toConversationView(*conv))
}

// GetMessages handles GET /api/v1/conversations/:id/messages
func (h *ConversationHandlers) GetMessages(c *fiber.Ctx) error {
	messages, err := h.svc.GetMessages(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"messages": messages})
}

// RenameConversation handles PUT /api/v1/conversations/:id/title
func (h *ConversationHandlers) RenameConversation(c *fiber.Ctx) error {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.BodyParser(&req); err != nil || req.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}
	if err := h.svc.RenameConversation(c.Context(), c.Params("id"), req.Title); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SetModel handles PUT /api/v1/conversations/:id/model
func (h *ConversationHandlers) SetModel(c *fiber.Ctx) error {
	var req struct {
		ModelID    string `json:"model_id"`
		ProviderID string `json:"provider_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.ModelID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Model id is required",
		})
	}
	if err := h.svc.SetConversationModel(c.Context(), c.Params("id"), req.ModelID, req.ProviderID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// MoveConversation handles PUT /api/v1/conversations/:id/folder
func (h *ConversationHandlers) MoveConversation(c *fiber.Ctx) error {
	var req struct {
		FolderID *string `json:"folder_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.svc.MoveConversation(c.Context(), c.Params("id"), req.FolderID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteConversation handles DELETE /api/v1/conversations/:id
func (h *ConversationHandlers) DeleteConversation(c *fiber.Ctx) error {
	if err := h.svc.DeleteConversation(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
