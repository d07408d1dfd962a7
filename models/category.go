package models

import (
	"time"
)

// Category is a top-level service family, e.g. "Plomería" or "Comida".
type Category struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	Name          string        `json:"name" gorm:"not null"`
	Slug          string        `json:"slug" gorm:"uniqueIndex"`
	Description   string        `json:"description"`
	Icon          string        `json:"icon"`
	Subcategories []Subcategory `json:"subcategories,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

type Subcategory struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	CategoryID uint      `json:"categoryId" gorm:"not null;uniqueIndex:idx_subcategory_slug,priority:1"`
	Name       string    `json:"name" gorm:"not null"`
	Slug       string    `json:"slug" gorm:"uniqueIndex:idx_subcategory_slug,priority:2"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
