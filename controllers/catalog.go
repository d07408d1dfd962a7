package controllers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/utils"
	"gorm.io/gorm"
)

// ListMenu handles GET /api/providers/:slug/menu.
func (h *Handler) ListMenu(c *fiber.Ctx) error {
	provider, err := h.providerBySlug(c)
	if err != nil {
		return err
	}
	q := h.db(c).Where("provider_id = ?", provider.ID)
	if c.QueryBool("available") {
		q = q.Where("is_available = ?", true)
	}
	var items []models.MenuItem
	if err := q.Order("name").Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"items": items})
}

type menuItemInput struct {
	Name        string `json:"name" validate:"required,max=150"`
	Description string `json:"description" validate:"max=1000"`
	PriceCents  int64  `json:"priceCents" validate:"gte=0"`
	IsAvailable *bool  `json:"isAvailable"`
}

func (h *Handler) CreateMenuItem(c *fiber.Ctx) error {
	provider := middleware.ProviderOf(c)
	var in menuItemInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	item := models.MenuItem{
		ProviderID:  provider.ID,
		Name:        in.Name,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		IsAvailable: true,
	}
	if err := h.db(c).Create(&item).Error; err != nil {
		return err
	}
	// default:true on the column swallows an explicit false on insert.
	if in.IsAvailable != nil && !*in.IsAvailable {
		if err := h.db(c).Model(&item).Update("is_available", false).Error; err != nil {
			return err
		}
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

type updateMenuItemInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=150"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	PriceCents  *int64  `json:"priceCents" validate:"omitempty,gte=0"`
	IsAvailable *bool   `json:"isAvailable"`
}

func (h *Handler) UpdateMenuItem(c *fiber.Ctx) error {
	item, err := h.ownedMenuItem(c)
	if err != nil {
		return err
	}
	var in updateMenuItemInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	changes := map[string]interface{}{}
	if in.Name != nil {
		changes["name"] = *in.Name
	}
	if in.Description != nil {
		changes["description"] = *in.Description
	}
	if in.PriceCents != nil {
		changes["price_cents"] = *in.PriceCents
	}
	if in.IsAvailable != nil {
		changes["is_available"] = *in.IsAvailable
	}
	if len(changes) > 0 {
		if err := h.db(c).Model(item).Updates(changes).Error; err != nil {
			return err
		}
	}
	if err := h.db(c).First(item, item.ID).Error; err != nil {
		return err
	}
	return c.JSON(item)
}

func (h *Handler) DeleteMenuItem(c *fiber.Ctx) error {
	item, err := h.ownedMenuItem(c)
	if err != nil {
		return err
	}
	if err := h.db(c).Delete(item).Error; err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ownedMenuItem loads :id scoped to the caller's provider; other providers'
// items look like missing ones.
func (h *Handler) ownedMenuItem(c *fiber.Ctx) (*models.MenuItem, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	var item models.MenuItem
	err = h.db(c).Where("id = ? AND provider_id = ?", id, middleware.ProviderOf(c).ID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Menu item not found")
	}
	return &item, err
}

// ListPaymentMethods handles GET /api/providers/:slug/payment-methods.
func (h *Handler) ListPaymentMethods(c *fiber.Ctx) error {
	provider, err := h.providerBySlug(c)
	if err != nil {
		return err
	}
	var methods []models.PaymentMethod
	if err := h.db(c).Where("provider_id = ?", provider.ID).Order("id").Find(&methods).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"paymentMethods": methods})
}

type paymentMethodInput struct {
	Kind    models.PaymentMethodKind `json:"kind" validate:"required,oneof=cash transfer card mobile"`
	Details string                   `json:"details" validate:"max=500"`
}

func (h *Handler) CreatePaymentMethod(c *fiber.Ctx) error {
	var in paymentMethodInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	method := models.PaymentMethod{
		ProviderID: middleware.ProviderOf(c).ID,
		Kind:       in.Kind,
		Details:    in.Details,
	}
	if err := h.db(c).Create(&method).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(method)
}

func (h *Handler) DeletePaymentMethod(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	res := h.db(c).Where("id = ? AND provider_id = ?", id, middleware.ProviderOf(c).ID).
		Delete(&models.PaymentMethod{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Payment method not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetAvailability handles GET /api/providers/:slug/availability.
func (h *Handler) GetAvailability(c *fiber.Ctx) error {
	provider, err := h.providerBySlug(c)
	if err != nil {
		return err
	}
	var slots []models.Availability
	if err := h.db(c).Where("provider_id = ?", provider.ID).
		Order("day_of_week, start_time").Find(&slots).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"slots": slots})
}

type availabilitySlot struct {
	DayOfWeek *int   `json:"dayOfWeek" validate:"required,min=0,max=6"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
	EndTime   string `json:"endTime" validate:"required,hhmm"`
}

type availabilityInput struct {
	Slots []availabilitySlot `json:"slots" validate:"max=50,dive"`
}

// ReplaceAvailability handles PUT /api/providers/me/availability. The weekly
// schedule is replaced as a whole.
func (h *Handler) ReplaceAvailability(c *fiber.Ctx) error {
	var in availabilityInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	provider := middleware.ProviderOf(c)

	slots := make([]models.Availability, 0, len(in.Slots))
	for i, s := range in.Slots {
		if s.StartTime >= s.EndTime {
			return utils.NewValidationError(fmt.Sprintf("slots[%d].endTime", i), "gtfield")
		}
		slots = append(slots, models.Availability{
			ProviderID: provider.ID,
			DayOfWeek:  models.DayOfWeek(*s.DayOfWeek),
			StartTime:  s.StartTime,
			EndTime:    s.EndTime,
		})
	}

	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("provider_id = ?", provider.ID).Delete(&models.Availability{}).Error; err != nil {
			return err
		}
		if len(slots) == 0 {
			return nil
		}
		return tx.Create(&slots).Error
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"slots": slots})
}

// ListCategories handles GET /api/categories.
func (h *Handler) ListCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := h.db(c).Preload("Subcategories", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("name")
	}).Order("name").Find(&categories).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"categories": categories})
}

// GetCategory handles GET /api/categories/:slug.
func (h *Handler) GetCategory(c *fiber.Ctx) error {
	var category models.Category
	err := h.db(c).Preload("Subcategories", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("name")
	}).Where("slug = ?", c.Params("slug")).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Category not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"category": category})
}
