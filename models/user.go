package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	Password     string    `json:"-" gorm:"not null"`
	Phone        string    `json:"phone"`
	Role         Role      `json:"role" gorm:"not null;default:'consumer'"`
	IsProvider   bool      `json:"isProvider" gorm:"default:false"`
	AvatarURL    string    `json:"avatarURL"`
	PhotoVisible bool      `json:"photoVisible" gorm:"default:false"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BeforeCreate keeps role and provider flag consistent.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleConsumer
	}
	if u.IsProvider {
		u.Role = RoleProvider
	}
	return nil
}
