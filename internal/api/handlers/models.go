package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mydrawer/mydrawer-server/internal/providers"
)

// GetModels handles GET /api/v1/models and returns the static catalog.
func GetModels(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"models": providers.Models})
}
