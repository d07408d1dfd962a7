package models

import (
	"time"
)

// Provider is a user's service-offering profile. Its primary category lives
// on the row itself; additional categories go through provider_categories.
type Provider struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	UserID        uint         `json:"userId" gorm:"uniqueIndex;not null"`
	User          User         `json:"user,omitempty" gorm:"foreignKey:UserID"`
	BusinessName  string       `json:"businessName" gorm:"not null"`
	Slug          string       `json:"slug" gorm:"uniqueIndex"`
	Description   string       `json:"description"`
	Phone         string       `json:"phone"`
	WhatsApp      string       `json:"whatsapp"`
	Address       string       `json:"address"`
	City          string       `json:"city"`
	PhotoURL      string       `json:"photoURL"`
	CategoryID    uint         `json:"categoryId" gorm:"index"`
	Category      *Category    `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	SubcategoryID *uint        `json:"subcategoryId" gorm:"index"`
	Subcategory   *Subcategory `json:"subcategory,omitempty" gorm:"foreignKey:SubcategoryID"`
	Categories    []Category   `json:"categories,omitempty" gorm:"many2many:provider_categories;"`
	IsActive      bool         `json:"isActive" gorm:"default:true"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

type MenuItem struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ProviderID  uint      `json:"providerId" gorm:"index;not null"`
	Name        string    `json:"name" gorm:"not null"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"priceCents"`
	IsAvailable bool      `json:"isAvailable" gorm:"default:true"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type PaymentMethodKind string

const (
	PaymentCash     PaymentMethodKind = "cash"
	PaymentTransfer PaymentMethodKind = "transfer"
	PaymentCard     PaymentMethodKind = "card"
	PaymentMobile   PaymentMethodKind = "mobile"
)

type PaymentMethod struct {
	ID         uint              `json:"id" gorm:"primaryKey"`
	ProviderID uint              `json:"providerId" gorm:"index;not null"`
	Kind       PaymentMethodKind `json:"kind" gorm:"not null"`
	Details    string            `json:"details"`
	CreatedAt  time.Time         `json:"createdAt"`
}
