package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/mydrawer/mydrawer-server/internal/api/handlers"
	"github.com/mydrawer/mydrawer-server/internal/chat"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, svc *chat.Service) {
	api := app.Group("/api/v1")

	conversationHandlers := handlers.NewConversationHandlers(svc)
	folderHandlers := handlers.NewFolderHandlers(svc)
	chatHandlers := handlers.NewChatHandlers(svc)

	// Sidebar and conversations
	api.Get("/sidebar", conversationHandlers.GetSidebar)
	api.Post("/conversations", conversationHandlers.CreateConversation)
	api.Get("/conversations/:id", conversationHandlers.GetConversation)
	api.Get("/conversations/:id/messages", conversationHandlers.GetMessages)
	api.Put("/conversations/:id/title", conversationHandlers.RenameConversation)
	api.Put("/conversations/:id/model", conversationHandlers.SetModel)
	api.Put("/conversations/:id/folder", conversationHandlers.MoveConversation)
	api.Delete("/conversations/:id", conversationHandlers.DeleteConversation)

	// Turn operations outside the stream
	api.Post("/conversations/:id/rewind", chatHandlers.Rewind)
	api.Post("/conversations/:id/summarize", chatHandlers.Summarize)

	// Folders
	api.Post("/folders", folderHandlers.CreateFolder)
	api.Put("/folders/:id", folderHandlers.RenameFolder)
	api.Delete("/folders/:id", folderHandlers.DeleteFolder)

	// Model catalog
	api.Get("/models", handlers.GetModels)

	// WebSocket upgrade gate
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(chatHandlers.StreamTurn))

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "mydrawer-server",
		})
	})
}
