package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/models"
	"backoffice-service/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type CategoryController struct {
	service services.CategoryService
}

func NewCategoryController(service services.CategoryService) *CategoryController {
	return &CategoryController{service: service}
}

// GetCategories handles GET /categories.
func (cc *CategoryController) GetCategories(c *gin.Context) {
	withChildren, ok := boolQuery(c, "include_children")
	if !ok {
		return
	}
	withCounts, ok := boolQuery(c, "include_product_count")
	if !ok {
		return
	}

	categories, err := cc.service.FindAll(c.Request.Context(), withChildren, withCounts)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": categories, "total": len(categories)})
}

// GetCategory handles GET /categories/:id.
func (cc *CategoryController) GetCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id", "category")
	if !ok {
		return
	}
	category, err := cc.service.FindOne(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// GetCategoryBySlug handles GET /categories/slug/:slug.
func (cc *CategoryController) GetCategoryBySlug(c *gin.Context) {
	category, err := cc.service.FindBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// CreateCategory handles POST /categories (admin only).
func (cc *CategoryController) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	category, err := cc.service.Create(c.Request.Context(), &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// UpdateCategory handles PATCH /categories/:id (admin only). The body is
// decoded twice: once into the request and once as raw fields, because
// "parent_id": null (move to root) and an absent parent_id both decode to nil.
func (cc *CategoryController) UpdateCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id", "category")
	if !ok {
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		invalidBody(c, err)
		return
	}

	var req models.UpdateCategoryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		invalidBody(c, err)
		return
	}
	if err := binding.Validator.ValidateStruct(&req); err != nil {
		invalidBody(c, err)
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err == nil {
		if raw, present := fields["parent_id"]; present && bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			req.ClearParent = true
		}
	}

	category, err := cc.service.Update(c.Request.Context(), id, &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category})
}

// DeleteCategory handles DELETE /categories/:id (admin only).
func (cc *CategoryController) DeleteCategory(c *gin.Context) {
	id, ok := uuidParam(c, "id", "category")
	if !ok {
		return
	}
	if err := cc.service.Remove(c.Request.Context(), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted successfully"})
}

// BulkDeleteCategories handles POST /categories/bulk-delete (admin only).
func (cc *CategoryController) BulkDeleteCategories(c *gin.Context) {
	var req models.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	if err := cc.service.BulkRemove(c.Request.Context(), req.IDs); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Categories deleted successfully", "count": len(req.IDs)})
}
