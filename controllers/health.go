package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/db"
	"go.uber.org/zap"
)

func (h *Handler) Health(c *fiber.Ctx) error {
	if err := db.Ping(h.DB); err != nil {
		h.Log.Error("health check failed", zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
