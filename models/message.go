package models

import (
	"time"
)

type Message struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	SenderID         uint       `json:"senderId" gorm:"index;not null"`
	RecipientID      uint       `json:"recipientId" gorm:"index;not null"`
	ServiceRequestID *uint      `json:"serviceRequestId" gorm:"index"`
	Body             string     `json:"body" gorm:"not null"`
	ReadAt           *time.Time `json:"readAt"`
	CreatedAt        time.Time  `json:"createdAt"`
}
