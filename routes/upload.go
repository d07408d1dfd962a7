package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/controllers"
)

func SetupUploadRoutes(api fiber.Router, h *controllers.Handler, protected fiber.Handler) {
	api.Post("/uploads/setup", h.UploadDuringSetup)
	api.Post("/uploads", protected, h.Upload)
}
