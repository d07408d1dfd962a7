package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type updateUserInput struct {
	Name         *string `json:"name" validate:"omitempty,min=1,max=120"`
	Phone        *string `json:"phone" validate:"omitempty,max=30"`
	AvatarURL    *string `json:"avatarURL" validate:"omitempty,url"`
	PhotoVisible *bool   `json:"photoVisible"`
	IsProvider   *bool   `json:"isProvider"`
}

// UpdateUser handles PATCH /api/users/:id. Only the user may edit themselves.
// Switching isProvider on returns a fresh providerSetupToken.
func (h *Handler) UpdateUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if id != middleware.UserID(c) {
		return forbidden()
	}
	var in updateUserInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}

	var user models.User
	err = h.db(c).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		return err
	}

	changes := map[string]interface{}{}
	if in.Name != nil {
		changes["name"] = *in.Name
	}
	if in.Phone != nil {
		changes["phone"] = *in.Phone
	}
	if in.AvatarURL != nil {
		changes["avatar_url"] = *in.AvatarURL
	}
	if in.PhotoVisible != nil {
		changes["photo_visible"] = *in.PhotoVisible
	}
	becameProvider := false
	if in.IsProvider != nil && *in.IsProvider != user.IsProvider {
		changes["is_provider"] = *in.IsProvider
		if user.Role != models.RoleAdmin {
			if *in.IsProvider {
				changes["role"] = models.RoleProvider
			} else {
				changes["role"] = models.RoleConsumer
			}
		}
		becameProvider = *in.IsProvider
	}

	if len(changes) > 0 {
		if err := h.db(c).Model(&user).Updates(changes).Error; err != nil {
			return err
		}
		if err := h.db(c).First(&user, id).Error; err != nil {
			return err
		}
	}

	resp := fiber.Map{"user": user}
	if becameProvider {
		setup, err := h.Tokens.Issue(c.UserContext(), user.ID)
		if err != nil {
			return err
		}
		resp["providerSetupToken"] = setup
		h.Log.Info("user switched to provider", zap.Uint("user_id", user.ID))
	}
	return c.JSON(resp)
}

type profilePhotoInput struct {
	ProviderSetupToken string `json:"providerSetupToken"`
	PhotoURL           string `json:"photoURL" validate:"required,url"`
	PhotoVisible       *bool  `json:"photoVisible"`
}

// UpdateProfilePhoto handles PUT /api/profile-photos during provider setup.
// The token is only peeked so the provider form can still consume it.
func (h *Handler) UpdateProfilePhoto(c *fiber.Ctx) error {
	var in profilePhotoInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}
	if in.ProviderSetupToken == "" {
		return fiber.NewError(fiber.StatusBadRequest, "providerSetupToken is required")
	}
	userID, err := h.Tokens.Peek(c.UserContext(), in.ProviderSetupToken)
	if err != nil {
		return tokenError(err, fiber.StatusUnauthorized)
	}
	if err := utils.Validate(&in); err != nil {
		return err
	}

	visible := true
	if in.PhotoVisible != nil {
		visible = *in.PhotoVisible
	}

	var user models.User
	err = h.db(c).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"avatar_url":    in.PhotoURL,
			"photo_visible": visible,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}
		// Keep an already created provider profile in sync.
		if err := tx.Model(&models.Provider{}).Where("user_id = ?", userID).
			Update("photo_url", in.PhotoURL).Error; err != nil {
			return err
		}
		return tx.First(&user, userID).Error
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user})
}
