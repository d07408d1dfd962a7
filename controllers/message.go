package controllers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/utils"
	"gorm.io/gorm"
)

type messageInput struct {
	RecipientID      uint   `json:"recipientId" validate:"required"`
	ServiceRequestID *uint  `json:"serviceRequestId"`
	Body             string `json:"body" validate:"required,max=4000"`
}

// SendMessage handles POST /api/messages. A message tied to a service request
// must be between its two parties.
func (h *Handler) SendMessage(c *fiber.Ctx) error {
	var in messageInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	sender := middleware.UserID(c)
	if in.RecipientID == sender {
		return utils.NewValidationError("recipientId", "ne")
	}

	var recipients int64
	if err := h.db(c).Model(&models.User{}).Where("id = ?", in.RecipientID).Count(&recipients).Error; err != nil {
		return err
	}
	if recipients == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Recipient not found")
	}

	if in.ServiceRequestID != nil {
		sr, err := h.Bookings.Get(c.UserContext(), *in.ServiceRequestID, sender)
		if err != nil {
			return bookingError(err)
		}
		if !sr.IsParty(in.RecipientID) {
			return utils.NewValidationError("recipientId", "party")
		}
	}

	msg := models.Message{
		SenderID:         sender,
		RecipientID:      in.RecipientID,
		ServiceRequestID: in.ServiceRequestID,
		Body:             in.Body,
	}
	if err := h.db(c).Create(&msg).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// ListConversation handles GET /api/messages?with=:userId, oldest first.
func (h *Handler) ListConversation(c *fiber.Ctx) error {
	other := c.QueryInt("with")
	if other <= 0 {
		return utils.NewValidationError("with", "required")
	}
	me := middleware.UserID(c)
	page, limit, offset := utils.Paginate(c)

	q := h.db(c).Model(&models.Message{}).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)", me, other, other, me)
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return err
	}
	var messages []models.Message
	if err := q.Order("created_at, id").Limit(limit).Offset(offset).Find(&messages).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"messages": messages,
		"total":    total,
		"page":     page,
		"limit":    limit,
		"pages":    utils.Pages(total, limit),
	})
}

// MarkMessageRead handles PATCH /api/messages/:id/read. Only the recipient may
// mark a message; repeated calls keep the first read time.
func (h *Handler) MarkMessageRead(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var msg models.Message
	err = h.db(c).First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Message not found")
	}
	if err != nil {
		return err
	}
	if msg.RecipientID != middleware.UserID(c) {
		return forbidden()
	}
	if msg.ReadAt == nil {
		now := time.Now()
		if err := h.db(c).Model(&msg).Update("read_at", now).Error; err != nil {
			return err
		}
		msg.ReadAt = &now
	}
	return c.JSON(msg)
}
