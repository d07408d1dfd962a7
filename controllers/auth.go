package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type registerInput struct {
	Name       string `json:"name" validate:"required,max=120"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Phone      string `json:"phone" validate:"omitempty,max=30"`
	IsProvider bool   `json:"isProvider"`
}

// Register handles POST /api/users. Provider sign-ups also get a setup token
// for the provider profile form.
func (h *Handler) Register(c *fiber.Ctx) error {
	var in registerInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))

	var existing int64
	if err := h.db(c).Model(&models.User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		return fiber.NewError(fiber.StatusConflict, "User with this email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.BcryptCost)
	if err != nil {
		return err
	}
	user := models.User{
		Name:       strings.TrimSpace(in.Name),
		Email:      email,
		Password:   string(hashed),
		Phone:      in.Phone,
		IsProvider: in.IsProvider,
	}
	if err := h.db(c).Create(&user).Error; err != nil {
		return err
	}

	tokens, err := middleware.IssueTokens(h.JWTSecret, &user)
	if err != nil {
		return err
	}
	resp := fiber.Map{
		"user":         user,
		"token":        tokens.Token,
		"refreshToken": tokens.RefreshToken,
	}
	if user.IsProvider {
		setup, err := h.Tokens.Issue(c.UserContext(), user.ID)
		if err != nil {
			return err
		}
		resp["providerSetupToken"] = setup
	}
	h.Log.Info("user registered", zap.Uint("user_id", user.ID), zap.Bool("is_provider", user.IsProvider))
	return c.Status(fiber.StatusCreated).JSON(resp)
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(c *fiber.Ctx) error {
	var in loginInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}

	var user models.User
	err := h.db(c).Where("email = ?", strings.ToLower(strings.TrimSpace(in.Email))).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	}

	tokens, err := middleware.IssueTokens(h.JWTSecret, &user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"token":        tokens.Token,
		"refreshToken": tokens.RefreshToken,
		"user":         user,
	})
}

// RefreshToken exchanges a refresh token for a new pair.
func (h *Handler) RefreshToken(c *fiber.Ctx) error {
	var in struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	userID, err := middleware.ParseRefreshToken(h.JWTSecret, in.RefreshToken)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid refresh token")
	}

	var user models.User
	err = h.db(c).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid refresh token")
	}
	if err != nil {
		return err
	}
	tokens, err := middleware.IssueTokens(h.JWTSecret, &user)
	if err != nil {
		return err
	}
	return c.JSON(tokens)
}

// Me returns the current user with their provider profile, if any.
func (h *Handler) Me(c *fiber.Ctx) error {
	var user models.User
	err := h.db(c).First(&user, middleware.UserID(c)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	if err != nil {
		return err
	}

	resp := fiber.Map{"user": user}
	var provider models.Provider
	err = h.db(c).Where("user_id = ?", user.ID).First(&provider).Error
	switch {
	case err == nil:
		resp["provider"] = provider
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}
	return c.JSON(resp)
}
