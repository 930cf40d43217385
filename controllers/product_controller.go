package controllers

import (
	"net/http"
	"strings"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/models"
	"backoffice-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProductController struct {
	service services.ProductService
}

func NewProductController(service services.ProductService) *ProductController {
	return &ProductController{service: service}
}

// GetProducts handles GET /products?page=&per_page=&category_id=&search=.
func (pc *ProductController) GetProducts(c *gin.Context) {
	filter := models.ProductFilter{Search: strings.TrimSpace(c.Query("search"))}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			apperrors.Respond(c, apperrors.BadRequest("Invalid category ID"))
			return
		}
		filter.CategoryID = &id
	}

	page, err := pc.service.List(c.Request.Context(), filter, intQuery(c, "page", 1), intQuery(c, "per_page", 0))
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GetProduct handles GET /products/:id.
func (pc *ProductController) GetProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id", "product")
	if !ok {
		return
	}
	product, err := pc.service.FindOne(c.Request.Context(), id)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// CreateProduct handles POST /products (admin only).
func (pc *ProductController) CreateProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	product, err := pc.service.Create(c.Request.Context(), &req)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// DeleteProduct handles DELETE /products/:id (admin only).
func (pc *ProductController) DeleteProduct(c *gin.Context) {
	id, ok := uuidParam(c, "id", "product")
	if !ok {
		return
	}
	if err := pc.service.Remove(c.Request.Context(), id); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// BulkDeleteProducts handles POST /products/bulk-delete (admin only).
func (pc *ProductController) BulkDeleteProducts(c *gin.Context) {
	var req models.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	if err := pc.service.BulkRemove(c.Request.Context(), req.IDs); err != nil {
		apperrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Products deleted successfully", "count": len(req.IDs)})
}
