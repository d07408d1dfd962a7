// Package booking owns the service-request lifecycle: creation, status
// transitions guarded by party checks, and appointment scheduling.
package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/meinhoongagan/referencias-locales/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("service request not found")
	ErrForbidden         = errors.New("not a party to this service request")
	ErrInvalidStatus     = errors.New("invalid booking status")
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict means the request changed between load and update.
	ErrConflict         = errors.New("service request was modified concurrently")
	ErrProviderNotFound = errors.New("provider not found")
	ErrSelfBooking      = errors.New("providers cannot book themselves")
)

type Manager struct {
	db *gorm.DB
}

func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// Authorize allows the requester and the user owning the linked provider.
// sr.Provider must be loaded.
func Authorize(sr *models.ServiceRequest, actingUserID uint) error {
	if !sr.IsParty(actingUserID) {
		return ErrForbidden
	}
	return nil
}

// Get loads a request with requester and provider for a party of it.
func (m *Manager) Get(ctx context.Context, requestID, actingUserID uint) (*models.ServiceRequest, error) {
	sr, err := m.load(m.db.WithContext(ctx), requestID)
	if err != nil {
		return nil, err
	}
	if err := Authorize(sr, actingUserID); err != nil {
		return nil, err
	}
	return sr, nil
}

func (m *Manager) load(tx *gorm.DB, requestID uint) (*models.ServiceRequest, error) {
	var sr models.ServiceRequest
	err := tx.Preload("Provider").Preload("Provider.User").Preload("Requester").
		First(&sr, requestID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load service request %d: %w", requestID, err)
	}
	return &sr, nil
}

// NewRequest is what a consumer submits to ask a provider for a service.
type NewRequest struct {
	ProviderID    uint
	CategoryID    *uint
	Title         string
	Description   string
	Location      string
	Notes         string
	ScheduledDate string
	ScheduledTime string
	TotalCents    *int64
}

// Create stores a pending request from requesterID.
func (m *Manager) Create(ctx context.Context, requesterID uint, in NewRequest) (*models.ServiceRequest, error) {
	tx := m.db.WithContext(ctx)

	var provider models.Provider
	err := tx.Where("id = ? AND is_active = ?", in.ProviderID, true).First(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load provider %d: %w", in.ProviderID, err)
	}
	if provider.UserID == requesterID {
		return nil, ErrSelfBooking
	}

	categoryID := in.CategoryID
	if categoryID == nil && provider.CategoryID != 0 {
		categoryID = &provider.CategoryID
	}

	sr := models.ServiceRequest{
		RequesterID:   requesterID,
		ProviderID:    provider.ID,
		CategoryID:    categoryID,
		Title:         in.Title,
		Description:   in.Description,
		Location:      in.Location,
		Notes:         in.Notes,
		ScheduledDate: in.ScheduledDate,
		ScheduledTime: in.ScheduledTime,
		Status:        models.StatusPending,
		TotalCents:    in.TotalCents,
	}
	if err := tx.Create(&sr).Error; err != nil {
		return nil, fmt.Errorf("create service request: %w", err)
	}
	sr.Provider = provider
	return &sr, nil
}

// ListRole selects which side of the requests a listing shows.
type ListRole string

const (
	AsRequester ListRole = "requester"
	AsProvider  ListRole = "provider"
)

// List returns the acting user's requests, newest first. status filters when
// non-empty.
func (m *Manager) List(ctx context.Context, actingUserID uint, role ListRole, status models.BookingStatus, limit, offset int) ([]models.ServiceRequest, int64, error) {
	q := m.db.WithContext(ctx).Model(&models.ServiceRequest{})
	switch role {
	case AsProvider:
		q = q.Where("provider_id IN (?)",
			m.db.Model(&models.Provider{}).Select("id").Where("user_id = ?", actingUserID))
	default:
		q = q.Where("requester_id = ?", actingUserID)
	}
	if status != "" {
		if !status.Valid() {
			return nil, 0, ErrInvalidStatus
		}
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count service requests: %w", err)
	}
	var out []models.ServiceRequest
	if err := q.Preload("Provider").Preload("Requester").
		Order("created_at DESC").Limit(limit).Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, fmt.Errorf("list service requests: %w", err)
	}
	return out, total, nil
}
