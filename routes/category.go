package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/controllers"
)

func SetupCategoryRoutes(api fiber.Router, h *controllers.Handler) {
	categories := api.Group("/categories")
	categories.Get("/", h.ListCategories)
	categories.Get("/:slug", h.GetCategory)
}
