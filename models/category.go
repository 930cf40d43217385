package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a node in the self-referential product category tree.
type Category struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_categories_slug_live,where:deleted_at IS NULL" json:"slug"`
	Description *string        `gorm:"type:text" json:"description,omitempty"`
	ParentID    *uuid.UUID     `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	IsActive    bool           `gorm:"not null" json:"is_active"`
	SortOrder   int            `gorm:"not null;default:0" json:"sort_order"`
	Children    []Category     `gorm:"foreignKey:ParentID" json:"children,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Computed on request, never stored.
	ProductCount *int64 `gorm:"-" json:"product_count,omitempty"`
}

// CreateCategoryRequest is the payload for POST /categories.
type CreateCategoryRequest struct {
	Name        string     `json:"name" binding:"required,min=1,max=255"`
	Slug        *string    `json:"slug,omitempty" binding:"omitempty,max=255"`
	Description *string    `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
	SortOrder   *int       `json:"sort_order,omitempty" binding:"omitempty,gte=0"`
}

// UpdateCategoryRequest is the payload for PATCH /categories/:id. Only
// non-nil fields are applied. ClearParent moves the category to the root;
// the controller sets it when the body carries "parent_id": null.
type UpdateCategoryRequest struct {
	Name        *string    `json:"name,omitempty" binding:"omitempty,min=1,max=255"`
	Description *string    `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	ClearParent bool       `json:"-"`
	IsActive    *bool      `json:"is_active,omitempty"`
	SortOrder   *int       `json:"sort_order,omitempty" binding:"omitempty,gte=0"`
}

// BulkDeleteRequest is shared by the category and product bulk-delete routes.
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required,min=1,max=100"`
}
