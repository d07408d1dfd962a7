package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/utils"
	"gorm.io/gorm"
)

const localProvider = "provider"

// RequireRole checks the caller's current role in the database, so a role
// change takes effect before the access token expires. Must run after
// Protected.
func RequireRole(db *gorm.DB, roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var user models.User
		err := db.WithContext(c.UserContext()).Select("id", "role").First(&user, UserID(c)).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return unauthorized(c, "User not found")
		}
		if err != nil {
			return err
		}
		for _, r := range roles {
			if user.Role == r {
				c.Locals(localRole, user.Role)
				return c.Next()
			}
		}
		return forbidden(c, "You don't have the required role to perform this action")
	}
}

// RequireProvider loads the caller's provider profile into Locals and rejects
// callers without one.
func RequireProvider(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var provider models.Provider
		err := db.WithContext(c.UserContext()).Where("user_id = ?", UserID(c)).First(&provider).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return forbidden(c, "A provider profile is required")
		}
		if err != nil {
			return err
		}
		c.Locals(localProvider, &provider)
		return c.Next()
	}
}

// ProviderOf returns the provider loaded by RequireProvider.
func ProviderOf(c *fiber.Ctx) *models.Provider {
	p, _ := c.Locals(localProvider).(*models.Provider)
	return p
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(utils.ErrorResponse{
		Message: "Forbidden",
		Error:   msg,
	})
}
