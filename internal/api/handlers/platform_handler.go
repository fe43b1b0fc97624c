package handlers

import (
	"errors"
	"log/slog"
	"net/url"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/broadcast/configs"
	"github.com/maheshrc27/broadcast/internal/platform"
	"github.com/maheshrc27/broadcast/internal/service"
	"github.com/maheshrc27/broadcast/internal/transfer"
)

type PlatformHandler struct {
	ps  service.PlatformService
	cfg config.Config
}

func NewPlatformHandler(ps service.PlatformService, cfg config.Config) *PlatformHandler {
	return &PlatformHandler{
		ps:  ps,
		cfg: cfg,
	}
}

func (h *PlatformHandler) Capabilities(c *fiber.Ctx) error {
	return c.JSON(h.ps.Capabilities())
}

func (h *PlatformHandler) Connect(c *fiber.Ctx) error {
	userID := GetUserID(c)
	name := c.Params("platform")

	var (
		resp *transfer.ConnectResponse
		err  error
	)
	switch platform.ID(name) {
	case platform.Bluesky:
		var req transfer.BlueskyConnect
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		resp, err = h.ps.ConnectBluesky(c.UserContext(), userID, &req)

	case platform.Mastodon:
		var req transfer.MastodonConnect
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
		resp, err = h.ps.Connect(c.UserContext(), userID, name, req.Instance)

	default:
		resp, err = h.ps.Connect(c.UserContext(), userID, name, "")
	}
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// Callback always redirects back to the frontend, with either the connected
// platform or an error message in the query string.
func (h *PlatformHandler) Callback(c *fiber.Ctx) error {
	name := c.Params("platform")

	if denied := c.Query("error"); denied != "" {
		msg := c.Query("error_description", denied)
		return h.redirect(c, url.Values{"error": {msg}})
	}

	resp, err := h.ps.Callback(c.UserContext(), name, c.Query("code"), c.Query("state"))
	if err != nil {
		slog.Info("platform callback failed", "platform", name, "error", err)
		msg := err.Error()
		var serr *service.Error
		if !errors.As(err, &serr) {
			msg = "Failed to connect " + name
		}
		return h.redirect(c, url.Values{"error": {msg}})
	}

	return h.redirect(c, url.Values{"connected": {resp.Platform}})
}

func (h *PlatformHandler) redirect(c *fiber.Ctx, q url.Values) error {
	return c.Redirect(h.cfg.FrontendURL+"/platforms?"+q.Encode(), fiber.StatusFound)
}

func (h *PlatformHandler) Disconnect(c *fiber.Ctx) error {
	if err := h.ps.Disconnect(c.UserContext(), GetUserID(c), c.Params("platform")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Platform disconnected successfully",
	})
}

func (h *PlatformHandler) ListConnections(c *fiber.Ctx) error {
	connections, err := h.ps.List(c.UserContext(), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(connections)
}

func (h *PlatformHandler) PlatformLimit(c *fiber.Ctx) error {
	limit, err := h.ps.Limit(c.UserContext(), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(limit)
}
