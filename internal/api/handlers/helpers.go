package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/broadcast/internal/service"
)

func GetUserID(c *fiber.Ctx) int64 {
	raw, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(raw, 10, 64)
	return userID
}

// writeError maps service errors to a status code. Anything that is not a
// service.Error is reported as a generic 500.
func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, service.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrLimitReached):
		status = fiber.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrUpstream):
		status = fiber.StatusBadGateway
	}

	message := err.Error()
	var serr *service.Error
	if errors.Is(err, service.ErrUnauthorized) {
		message = "Unauthorized"
	} else if status == fiber.StatusInternalServerError && !errors.As(err, &serr) {
		slog.Error("request failed", "path", c.Path(), "error", err)
		message = "Internal server error"
	}

	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}
