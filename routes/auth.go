package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/controllers"
)

// SetupAuthRoutes configures registration, login and profile routes
func SetupAuthRoutes(api fiber.Router, h *controllers.Handler, protected fiber.Handler) {
	auth := api.Group("/auth")
	auth.Post("/login", h.Login)
	auth.Post("/refresh", h.RefreshToken)
	auth.Get("/me", protected, h.Me)

	api.Post("/users", h.Register)
	api.Patch("/users/:id", protected, h.UpdateUser)

	// Identified by the provider setup token, not a session.
	api.Put("/profile-photos", h.UpdateProfilePhoto)
}
