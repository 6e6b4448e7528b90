package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/mydrawer/mydrawer-server/internal/chat"
	"github.com/mydrawer/mydrawer-server/internal/providers"
	"github.com/mydrawer/mydrawer-server/internal/repository"
)

// ChatHandlers serves turn execution endpoints
type ChatHandlers struct {
	svc *chat.Service
}

func NewChatHandlers(svc *chat.Service) *ChatHandlers {
	return &ChatHandlers{svc: svc}
}

// turnRequest is the wire form of a streamed turn. Action selects the
// operation: "send" (default), "edit", or "regenerate".
type turnRequest struct {
	Action         string                       `json:"action"`
	ConversationID string                       `json:"conversation_id"`
	MessageID      string                       `json:"message_id,omitempty"`
	Content        string                       `json:"content"`
	Attachments    []repository.Attachment      `json:"attachments,omitempty"`
	ModelID        string                       `json:"model_id"`
	ProviderID     string                       `json:"provider_id"`
	APIKey         string                       `json:"api_key,omitempty"`
	Custom         *providers.CustomModelConfig `json:"custom,omitempty"`
	WebSearch      bool                         `json:"web_search,omitempty"`
	Recovery       *repository.Message          `json:"recovery,omitempty"`
}

func (r turnRequest) sendOptions() chat.SendOptions {
	return chat.SendOptions{
		ModelID:    r.ModelID,
		ProviderID: r.ProviderID,
		APIKey:     r.APIKey,
		Custom:     r.Custom,
		WebSearch:  r.WebSearch,
	}
}

// streamEvent is one frame on the chat WebSocket
type streamEvent struct {
	Type         string `json:"type"`
	Delta        string `json:"delta,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StreamTurn handles WebSocket /ws/chat. One request per connection; the
// reply streams back as delta frames followed by a done frame.
func (h *ChatHandlers) StreamTurn(c *websocket.Conn) {
	defer c.Close()

	var req turnRequest
	if err := c.ReadJSON(&req); err != nil {
		c.WriteJSON(streamEvent{Type: "error", Error: "Failed to parse request"})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A second read only ever arrives when the client closes or cancels.
	go func() {
		defer cancel()
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	stream, err := h.dispatchTurn(ctx, req)
	if err != nil {
		c.WriteJSON(streamEvent{Type: "error", Error: err.Error()})
		return
	}

	for chunk := range stream {
		if chunk.Error != "" {
			c.WriteJSON(streamEvent{Type: "error", Error: chunk.Error})
			return
		}
		event := streamEvent{Type: "delta", Delta: chunk.Delta}
		if chunk.FinishReason != "" {
			event = streamEvent{Type: "done", FinishReason: chunk.FinishReason}
		}
		if err := c.WriteJSON(event); err != nil {
			// Client disconnected
			return
		}
	}
}

func (h *ChatHandlers) dispatchTurn(ctx context.Context, req turnRequest) (<-chan providers.StreamChunk, error) {
	opts := req.sendOptions()
	switch req.Action {
	case "edit":
		return h.svc.EditMessage(ctx, req.MessageID, req.Content, opts, req.Recovery)
	case "regenerate":
		return h.svc.Regenerate(ctx, req.ConversationID, opts)
	default:
		return h.svc.SendMessage(ctx, req.ConversationID, req.Content, req.Attachments, opts)
	}
}

// Rewind handles POST /api/v1/conversations/:id/rewind
func (h *ChatHandlers) Rewind(c *fiber.Ctx) error {
	var req struct {
		MessageID string `json:"message_id"`
	}
	if err := c.BodyParser(&req); err != nil || req.MessageID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Message id is required",
		})
	}
	if err := h.svc.Rewind(c.Context(), c.Params("id"), req.MessageID); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Summarize handles POST /api/v1/conversations/:id/summarize
func (h *ChatHandlers) Summarize(c *fiber.Ctx) error {
	var req turnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	summary, err := h.svc.Summarize(c.Context(), c.Params("id"), req.sendOptions())
	if err != nil {
		return respondError(c, err)
	}
	if summary == nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Not enough messages to summarize",
		})
	}
	return c.JSON(summary)
}
