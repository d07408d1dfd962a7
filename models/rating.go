package models

import (
	"time"

	"gorm.io/gorm"
)

type Review struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Rating           int       `json:"rating" gorm:"not null"`
	Comment          string    `json:"comment"`
	ProviderID       uint      `json:"providerId" gorm:"index;not null"`
	ReviewerID       uint      `json:"reviewerId" gorm:"not null"`
	Reviewer         User      `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID"`
	ServiceRequestID uint      `json:"serviceRequestId" gorm:"uniqueIndex;not null"`
	CreatedAt        time.Time `json:"createdAt"`
}

// BeforeCreate clamps the rating to 1..5
func (r *Review) BeforeCreate(tx *gorm.DB) error {
	if r.Rating < 1 {
		r.Rating = 1
	} else if r.Rating > 5 {
		r.Rating = 5
	}
	return nil
}

// HasExistingReview reports whether the service request was already reviewed.
func (r *Review) HasExistingReview(tx *gorm.DB) (bool, error) {
	var count int64
	err := tx.Model(&Review{}).
		Where("service_request_id = ?", r.ServiceRequestID).
		Count(&count).Error
	return count > 0, err
}
