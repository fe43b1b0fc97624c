package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/broadcast/internal/service"
)

type CronHandler struct {
	s service.SchedulerService
}

func NewCronHandler(service service.SchedulerService) *CronHandler {
	return &CronHandler{s: service}
}

func (h *CronHandler) ProcessScheduledPosts(c *fiber.Ctx) error {
	report, err := h.s.Sweep(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}

func (h *CronHandler) ResetMonthlyLimits(c *fiber.Ctx) error {
	n, err := h.s.ResetMonthly(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"profiles": n,
	})
}
