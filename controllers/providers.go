package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/db"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type providerInput struct {
	ProviderSetupToken string `json:"providerSetupToken"`
	BusinessName       string `json:"businessName" validate:"required,max=150"`
	Description        string `json:"description" validate:"max=2000"`
	Phone              string `json:"phone" validate:"max=30"`
	WhatsApp           string `json:"whatsapp" validate:"max=30"`
	Address            string `json:"address" validate:"max=255"`
	City               string `json:"city" validate:"max=100"`
	PhotoURL           string `json:"photoURL" validate:"omitempty,url"`
	CategoryID         uint   `json:"categoryId" validate:"required"`
	SubcategoryID      *uint  `json:"subcategoryId"`
	CategoryIDs        []uint `json:"categoryIds" validate:"max=10"`
}

// CreateProvider handles POST /api/providers. The caller is identified by the
// setup token, which is consumed only when the profile is stored.
func (h *Handler) CreateProvider(c *fiber.Ctx) error {
	var in providerInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}
	if in.ProviderSetupToken == "" {
		return fiber.NewError(fiber.StatusBadRequest, "providerSetupToken is required")
	}
	userID, err := h.Tokens.Peek(c.UserContext(), in.ProviderSetupToken)
	if err != nil {
		return tokenError(err, fiber.StatusBadRequest)
	}
	if err := utils.Validate(&in); err != nil {
		return err
	}

	var user models.User
	if err := h.db(c).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid or expired provider setup token")
		}
		return err
	}
	var owned int64
	if err := h.db(c).Model(&models.Provider{}).Where("user_id = ?", userID).Count(&owned).Error; err != nil {
		return err
	}
	if owned > 0 {
		return fiber.NewError(fiber.StatusConflict, "User already has a provider profile")
	}
	extra, err := h.resolveCategories(c, in.CategoryID, in.SubcategoryID, in.CategoryIDs)
	if err != nil {
		return err
	}

	photo := in.PhotoURL
	if photo == "" && user.PhotoVisible {
		photo = user.AvatarURL
	}
	provider := models.Provider{
		UserID:        userID,
		BusinessName:  strings.TrimSpace(in.BusinessName),
		Description:   in.Description,
		Phone:         in.Phone,
		WhatsApp:      in.WhatsApp,
		Address:       in.Address,
		City:          in.City,
		PhotoURL:      photo,
		CategoryID:    in.CategoryID,
		SubcategoryID: in.SubcategoryID,
		Categories:    extra,
		IsActive:      true,
	}

	err = h.db(c).Transaction(func(tx *gorm.DB) error {
		slug, err := db.UniqueSlug(tx, &models.Provider{}, provider.BusinessName, nil)
		if err != nil {
			return err
		}
		provider.Slug = slug
		if err := tx.Create(&provider).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"is_provider": true,
			"role":        models.RoleProvider,
		}).Error; err != nil {
			return err
		}
		// Consumed last: a failed insert leaves the token usable.
		if _, err := h.Tokens.Consume(c.UserContext(), in.ProviderSetupToken); err != nil {
			return tokenError(err, fiber.StatusBadRequest)
		}
		return nil
	})
	if err != nil {
		return err
	}

	h.Log.Info("provider created",
		zap.Uint("provider_id", provider.ID),
		zap.Uint("user_id", userID),
		zap.String("slug", provider.Slug))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"provider": provider})
}

// resolveCategories checks the primary category and subcategory and loads the
// extra categories for the join table.
func (h *Handler) resolveCategories(c *fiber.Ctx, categoryID uint, subcategoryID *uint, extraIDs []uint) ([]models.Category, error) {
	var count int64
	if err := h.db(c).Model(&models.Category{}).Where("id = ?", categoryID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, utils.NewValidationError("categoryId", "exists")
	}
	if subcategoryID != nil {
		if err := h.db(c).Model(&models.Subcategory{}).
			Where("id = ? AND category_id = ?", *subcategoryID, categoryID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, utils.NewValidationError("subcategoryId", "exists")
		}
	}
	if len(extraIDs) == 0 {
		return nil, nil
	}
	var extra []models.Category
	if err := h.db(c).Where("id IN ?", extraIDs).Find(&extra).Error; err != nil {
		return nil, err
	}
	if len(extra) != len(uniqueIDs(extraIDs)) {
		return nil, utils.NewValidationError("categoryIds", "exists")
	}
	return extra, nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	out := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

// ListProviders handles GET /api/providers with optional category,
// subcategory and free-text filters.
func (h *Handler) ListProviders(c *fiber.Ctx) error {
	page, limit, offset := utils.Paginate(c)

	q := h.db(c).Model(&models.Provider{}).Where("providers.is_active = ?", true)
	if slug := c.Query("category"); slug != "" {
		catIDs := h.DB.Model(&models.Category{}).Select("id").Where("slug = ?", slug)
		q = q.Where("providers.category_id IN (?) OR providers.id IN (?)",
			catIDs,
			h.DB.Table("provider_categories").Select("provider_id").Where("category_id IN (?)", catIDs))
	}
	if slug := c.Query("subcategory"); slug != "" {
		q = q.Where("providers.subcategory_id IN (?)",
			h.DB.Model(&models.Subcategory{}).Select("id").Where("slug = ?", slug))
	}
	if city := c.Query("city"); city != "" {
		q = q.Where("LOWER(providers.city) = ?", strings.ToLower(city))
	}
	if term := strings.TrimSpace(c.Query("q")); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		q = q.Where("LOWER(providers.business_name) LIKE ? OR LOWER(providers.description) LIKE ?", like, like)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return err
	}
	var providers []models.Provider
	if err := q.Preload("Category").Preload("Subcategory").
		Order("providers.business_name").Limit(limit).Offset(offset).
		Find(&providers).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"providers": providers,
		"total":     total,
		"page":      page,
		"limit":     limit,
		"pages":     utils.Pages(total, limit),
	})
}

// providerBySlug loads an active provider or returns 404.
func (h *Handler) providerBySlug(c *fiber.Ctx) (*models.Provider, error) {
	var provider models.Provider
	err := h.db(c).Where("slug = ? AND is_active = ?", c.Params("slug"), true).First(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fiber.NewError(fiber.StatusNotFound, "Provider not found")
	}
	if err != nil {
		return nil, err
	}
	return &provider, nil
}

type ratingSummary struct {
	Average float64 `json:"average"`
	Count   int64   `json:"count"`
}

// GetProvider handles GET /api/providers/:slug.
func (h *Handler) GetProvider(c *fiber.Ctx) error {
	var provider models.Provider
	err := h.db(c).Preload("Category").Preload("Subcategory").Preload("Categories").Preload("User").
		Where("slug = ? AND is_active = ?", c.Params("slug"), true).First(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "Provider not found")
	}
	if err != nil {
		return err
	}
	// Owner contact data stays private on this public route.
	owner := models.User{ID: provider.User.ID, Name: provider.User.Name}
	if provider.User.PhotoVisible {
		owner.AvatarURL = provider.User.AvatarURL
		owner.PhotoVisible = true
	}
	provider.User = owner

	var rating ratingSummary
	if err := h.db(c).Model(&models.Review{}).Where("provider_id = ?", provider.ID).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Scan(&rating).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"provider": provider, "rating": rating})
}

type updateProviderInput struct {
	BusinessName  *string `json:"businessName" validate:"omitempty,min=1,max=150"`
	Description   *string `json:"description" validate:"omitempty,max=2000"`
	Phone         *string `json:"phone" validate:"omitempty,max=30"`
	WhatsApp      *string `json:"whatsapp" validate:"omitempty,max=30"`
	Address       *string `json:"address" validate:"omitempty,max=255"`
	City          *string `json:"city" validate:"omitempty,max=100"`
	PhotoURL      *string `json:"photoURL" validate:"omitempty,url"`
	CategoryID    *uint   `json:"categoryId"`
	SubcategoryID *uint   `json:"subcategoryId"`
	CategoryIDs   *[]uint `json:"categoryIds" validate:"omitempty,max=10"`
	IsActive      *bool   `json:"isActive"`
}

// UpdateMyProvider handles PATCH /api/providers/me. The slug does not follow
// business name changes.
func (h *Handler) UpdateMyProvider(c *fiber.Ctx) error {
	provider := middleware.ProviderOf(c)
	var in updateProviderInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}

	categoryID := provider.CategoryID
	if in.CategoryID != nil {
		categoryID = *in.CategoryID
	}
	subcategoryID := provider.SubcategoryID
	if in.SubcategoryID != nil {
		subcategoryID = in.SubcategoryID
	}
	var extra []models.Category
	if in.CategoryID != nil || in.SubcategoryID != nil || in.CategoryIDs != nil {
		var extraIDs []uint
		if in.CategoryIDs != nil {
			extraIDs = *in.CategoryIDs
		}
		var err error
		if extra, err = h.resolveCategories(c, categoryID, subcategoryID, extraIDs); err != nil {
			return err
		}
	}

	changes := map[string]interface{}{}
	set := func(col string, v *string) {
		if v != nil {
			changes[col] = *v
		}
	}
	set("business_name", in.BusinessName)
	set("description", in.Description)
	set("phone", in.Phone)
	set("whatsapp", in.WhatsApp)
	set("address", in.Address)
	set("city", in.City)
	set("photo_url", in.PhotoURL)
	if in.CategoryID != nil {
		changes["category_id"] = *in.CategoryID
	}
	if in.SubcategoryID != nil {
		changes["subcategory_id"] = *in.SubcategoryID
	}
	if in.IsActive != nil {
		changes["is_active"] = *in.IsActive
	}

	err := h.db(c).Transaction(func(tx *gorm.DB) error {
		if len(changes) > 0 {
			if err := tx.Model(provider).Updates(changes).Error; err != nil {
				return err
			}
		}
		if in.CategoryIDs != nil {
			assoc := tx.Model(provider).Association("Categories")
			if len(extra) == 0 {
				return assoc.Clear()
			}
			return assoc.Replace(extra)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var updated models.Provider
	if err := h.db(c).Preload("Category").Preload("Subcategory").Preload("Categories").
		First(&updated, provider.ID).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"provider": updated})
}
