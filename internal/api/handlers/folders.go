package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mydrawer/mydrawer-server/internal/chat"
)

// FolderHandlers serves folder endpoints
type FolderHandlers struct {
	svc *chat.Service
}

func NewFolderHandlers(svc *chat.Service) *FolderHandlers {
	return &FolderHandlers{svc: svc}
}

// CreateFolder handles POST /api/v1/folders
func (h *FolderHandlers) CreateFolder(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name is required",
		})
	}
	folder, err := h.svc.CreateFolder(c.Context(), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(folder)
}

// RenameFolder handles PUT /api/v1/folders/:id
func (h *FolderHandlers) RenameFolder(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Name is required",
		})
	}
	if err := h.svc.RenameFolder(c.Context(), c.Params("id"), req.Name); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteFolder handles DELETE /api/v1/folders/:id
func (h *FolderHandlers) DeleteFolder(c *fiber.Ctx) error {
	if err := h.svc.DeleteFolder(c.Context(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
