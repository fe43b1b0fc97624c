package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/broadcast/internal/service"
	"github.com/maheshrc27/broadcast/internal/transfer"
)

type PaymentHandler struct {
	s service.BillingService
}

func NewPaymentHandler(service service.BillingService) *PaymentHandler {
	return &PaymentHandler{s: service}
}

func (h *PaymentHandler) CreateCheckout(c *fiber.Ctx) error {
	var req transfer.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	session, err := h.s.Checkout(c.UserContext(), GetUserID(c), req.PriceID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(session)
}

func (h *PaymentHandler) CreatePortal(c *fiber.Ctx) error {
	session, err := h.s.Portal(c.UserContext(), GetUserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(session)
}

func (h *PaymentHandler) PaymentWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)

	if err := h.s.HandleWebhook(c.UserContext(), payload, c.Get("Stripe-Signature")); err != nil {
		slog.Info(err.Error())
		return writeError(c, err)
	}

	return c.JSON(fiber.Map{
		"received": true,
	})
}
