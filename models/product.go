package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name       string          `gorm:"type:varchar(255);not null" json:"name"`
	SKU        string          `gorm:"type:varchar(128);not null;uniqueIndex" json:"sku"`
	Price      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Quantity   int             `gorm:"not null;default:0" json:"quantity"`
	CategoryID *uuid.UUID      `gorm:"type:uuid;index" json:"category_id,omitempty"`
	IsActive   bool            `gorm:"not null" json:"is_active"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt  `gorm:"index" json:"-"`
}

type CreateProductRequest struct {
	Name       string          `json:"name" binding:"required,min=1,max=255"`
	SKU        string          `json:"sku" binding:"required,min=1,max=128"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity" binding:"gte=0"`
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
}

// ProductFilter narrows GET /products.
type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     string
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Products []Product `json:"products"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PerPage  int       `json:"per_page"`
}
