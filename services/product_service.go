package services

import (
	"context"
	"errors"
	"strings"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/models"
	"backoffice-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

type ProductService interface {
	Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter, page, perPage int) (*models.ProductPage, error)
	FindOne(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Remove(ctx context.Context, id uuid.UUID) error
	BulkRemove(ctx context.Context, ids []uuid.UUID) error
}

type productServiceImpl struct {
	repo       repository.ProductRepository
	categories repository.CategoryRepository
	cache      CategoryCache
	logger     *zap.Logger
}

// NewProductService wires the product service. Product writes invalidate the
// category cache because listings carry product counts.
func NewProductService(
	repo repository.ProductRepository,
	categories repository.CategoryRepository,
	cache CategoryCache,
	logger *zap.Logger,
) ProductService {
	return &productServiceImpl{repo: repo, categories: categories, cache: cache, logger: logger}
}

func (s *productServiceImpl) Create(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	if req.Price.IsNegative() {
		return nil, apperrors.BadRequest("Price cannot be negative")
	}

	if req.CategoryID != nil {
		if _, err := s.categories.FindByID(ctx, *req.CategoryID, false); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("Category with ID %s not found", *req.CategoryID)
			}
			return nil, apperrors.Internal("Failed to load category", err)
		}
	}

	product := &models.Product{
		Name:       strings.TrimSpace(req.Name),
		SKU:        strings.TrimSpace(req.SKU),
		Price:      req.Price.Round(2),
		Quantity:   req.Quantity,
		CategoryID: req.CategoryID,
		IsActive:   true,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.BadRequest("Product with SKU %q already exists", product.SKU)
		}
		s.logger.Error("Failed to create product", zap.String("sku", product.SKU), zap.Error(err))
		return nil, apperrors.Internal("Failed to create product", err)
	}

	s.invalidate(ctx)
	return product, nil
}

func (s *productServiceImpl) List(ctx context.Context, filter models.ProductFilter, page, perPage int) (*models.ProductPage, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case perPage < 1:
		perPage = defaultPerPage
	case perPage > maxPerPage:
		perPage = maxPerPage
	}

	products, total, err := s.repo.List(ctx, filter, page, perPage)
	if err != nil {
		s.logger.Error("Failed to list products", zap.Error(err))
		return nil, apperrors.Internal("Failed to list products", err)
	}
	if products == nil {
		products = []models.Product{}
	}

	return &models.ProductPage{Products: products, Total: total, Page: page, PerPage: perPage}, nil
}

func (s *productServiceImpl) FindOne(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Product with ID %s not found", id)
		}
		return nil, apperrors.Internal("Failed to load product", err)
	}
	return product, nil
}

func (s *productServiceImpl) Remove(ctx context.Context, id uuid.UUID) error {
	affected, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		s.logger.Error("Failed to delete product", zap.String("id", id.String()), zap.Error(err))
		return apperrors.Internal("Failed to delete product", err)
	}
	if affected == 0 {
		return apperrors.NotFound("Product with ID %s not found", id)
	}
	s.invalidate(ctx)
	return nil
}

func (s *productServiceImpl) BulkRemove(ctx context.Context, ids []uuid.UUID) error {
	return fanOutDelete(ctx, ids, "products", s.logger, s.Remove)
}

func (s *productServiceImpl) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
