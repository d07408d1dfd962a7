package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"go.uber.org/zap"
)

const maxUploadBytes = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Upload handles POST /api/uploads for signed-in users.
func (h *Handler) Upload(c *fiber.Ctx) error {
	return h.upload(c, middleware.UserID(c))
}

// UploadDuringSetup handles POST /api/uploads/setup. The multipart field
// providerSetupToken identifies the user and is peeked, not consumed.
func (h *Handler) UploadDuringSetup(c *fiber.Ctx) error {
	token := c.FormValue("providerSetupToken")
	if token == "" {
		return fiber.NewError(fiber.StatusBadRequest, "providerSetupToken is required")
	}
	userID, err := h.Tokens.Peek(c.UserContext(), token)
	if err != nil {
		return tokenError(err, fiber.StatusUnauthorized)
	}
	return h.upload(c, userID)
}

func (h *Handler) upload(c *fiber.Ctx, userID uint) error {
	if h.Uploader == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Uploads are not configured")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "file is required")
	}
	if fh.Size > maxUploadBytes {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "File exceeds 5 MB")
	}
	if !allowedImageTypes[fh.Header.Get("Content-Type")] {
		return fiber.NewError(fiber.StatusUnsupportedMediaType, "Only JPEG and PNG images are accepted")
	}

	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	url, err := h.Uploader.Upload(c.UserContext(), f, uuid.NewString(), fmt.Sprintf("referencias-locales/users/%d", userID))
	if err != nil {
		h.Log.Error("upload failed", zap.Uint("user_id", userID), zap.Error(err))
		return fiber.NewError(fiber.StatusBadGateway, "Upload failed")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"url": url})
}
