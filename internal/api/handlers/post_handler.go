package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/broadcast/internal/service"
	"github.com/maheshrc27/broadcast/internal/transfer"
)

type PostHandler struct {
	s  service.PostService
	ps service.PublisherService
}

func NewPostHandler(service service.PostService, publisher service.PublisherService) *PostHandler {
	return &PostHandler{s: service, ps: publisher}
}

func (h *PostHandler) SubmitPost(c *fiber.Ctx) error {
	var sub transfer.PostSubmission
	if err := c.BodyParser(&sub); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	resp, err := h.ps.Submit(c.UserContext(), GetUserID(c), &sub)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.UserContext(), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(posts)
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid post id",
		})
	}

	detail, err := h.s.Get(c.UserContext(), GetUserID(c), int64(postID))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(detail)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	postID, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid post id",
		})
	}

	if err := h.s.Remove(c.UserContext(), GetUserID(c), int64(postID)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Post removed successfully",
	})
}

func (h *PostHandler) PreviewPost(c *fiber.Ctx) error {
	var req transfer.PreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	preview, err := h.s.Preview(&req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(preview)
}
