package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/controllers"
	"github.com/meinhoongagan/referencias-locales/middleware"
)

// Setup mounts every API route on app.
func Setup(app *fiber.App, h *controllers.Handler) {
	app.Get("/healthz", h.Health)

	api := app.Group("/api")
	protected := middleware.Protected(h.JWTSecret)

	SetupAuthRoutes(api, h, protected)
	SetupCategoryRoutes(api, h)
	SetupProviderRoutes(api, h, protected)
	SetupBookingRoutes(api, h, protected)
	SetupMessageRoutes(api, h, protected)
	SetupUploadRoutes(api, h, protected)
	SetupPaymentRoutes(api, h, protected)
}
