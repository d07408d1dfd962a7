package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/controllers"
)

func SetupMessageRoutes(api fiber.Router, h *controllers.Handler, protected fiber.Handler) {
	messages := api.Group("/messages", protected)
	messages.Post("/", h.SendMessage)
	messages.Get("/", h.ListConversation)
	messages.Patch("/:id/read", h.MarkMessageRead)
}
