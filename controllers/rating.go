package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/meinhoongagan/referencias-locales/middleware"
	"github.com/meinhoongagan/referencias-locales/models"
	"github.com/meinhoongagan/referencias-locales/utils"
)

type reviewInput struct {
	ServiceRequestID uint   `json:"serviceRequestId" validate:"required"`
	Rating           int    `json:"rating" validate:"required"`
	Comment          string `json:"comment" validate:"max=2000"`
}

// CreateReview handles POST /api/providers/:slug/reviews. The reviewer must
// be the requester of a completed service request with this provider, and
// each request can be reviewed once.
func (h *Handler) CreateReview(c *fiber.Ctx) error {
	provider, err := h.providerBySlug(c)
	if err != nil {
		return err
	}
	var in reviewInput
	if err := utils.ParseBody(c, &in); err != nil {
		return err
	}
	userID := middleware.UserID(c)

	var eligible int64
	if err := h.db(c).Model(&models.ServiceRequest{}).
		Where("id = ? AND requester_id = ? AND provider_id = ? AND status = ?",
			in.ServiceRequestID, userID, provider.ID, models.StatusCompleted).
		Count(&eligible).Error; err != nil {
		return err
	}
	if eligible == 0 {
		return fiber.NewError(fiber.StatusForbidden, "Only completed service requests can be reviewed")
	}

	review := models.Review{
		Rating:           in.Rating,
		Comment:          in.Comment,
		ProviderID:       provider.ID,
		ReviewerID:       userID,
		ServiceRequestID: in.ServiceRequestID,
	}
	exists, err := review.HasExistingReview(h.db(c))
	if err != nil {
		return err
	}
	if exists {
		return fiber.NewError(fiber.StatusConflict, "This service request was already reviewed")
	}
	if err := h.db(c).Create(&review).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(review)
}

// ListReviews handles GET /api/providers/:slug/reviews, newest first.
func (h *Handler) ListReviews(c *fiber.Ctx) error {
	provider, err := h.providerBySlug(c)
	if err != nil {
		return err
	}
	page, limit, offset := utils.Paginate(c)

	q := h.db(c).Model(&models.Review{}).Where("provider_id = ?", provider.ID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return err
	}
	var reviews []models.Review
	if err := h.db(c).Where("provider_id = ?", provider.ID).
		Preload("Reviewer").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&reviews).Error; err != nil {
		return err
	}
	// Reviewer details are public; contact data is not.
	for i := range reviews {
		reviews[i].Reviewer = models.User{ID: reviews[i].Reviewer.ID, Name: reviews[i].Reviewer.Name}
	}
	return c.JSON(fiber.Map{
		"reviews": reviews,
		"total":   total,
		"page":    page,
		"limit":   limit,
		"pages":   utils.Pages(total, limit),
	})
}
