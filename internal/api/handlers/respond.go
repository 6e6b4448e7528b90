package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/mydrawer/mydrawer-server/internal/chat"
)

// respondError maps chat errors onto HTTP statuses. Unrecognized errors are
// reported as internal without leaking details beyond the message.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError

	var modelErr *chat.ModelNotFoundError
	var msgErr *chat.MessageNotFoundError
	var capErr *chat.CapabilityMismatchError
	var complErr *chat.CompletionError
	switch {
	case errors.As(err, &modelErr), errors.As(err, &msgErr):
		status = fiber.StatusNotFound
	case errors.As(err, &capErr), errors.Is(err, chat.ErrTooManyAttachments):
		status = fiber.StatusBadRequest
	case errors.As(err, &complErr):
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
