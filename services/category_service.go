package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "backoffice-service/common/errors"
	"backoffice-service/models"
	"backoffice-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CategoryService maintains the category tree: unique slugs, acyclic parent
// links and soft deletion guarded by children and products.
type CategoryService interface {
	Create(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error)
	FindAll(ctx context.Context, includeChildren, includeProductCount bool) ([]models.Category, error)
	FindOne(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindBySlug(ctx context.Context, slug string) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, req *models.UpdateCategoryRequest) (*models.Category, error)
	Remove(ctx context.Context, id uuid.UUID) error
	BulkRemove(ctx context.Context, ids []uuid.UUID) error
}

type categoryServiceImpl struct {
	repo     repository.CategoryRepository
	products repository.ProductRepository
	cache    CategoryCache
	logger   *zap.Logger
}

// NewCategoryService wires the category service. cache may be nil.
func NewCategoryService(
	repo repository.CategoryRepository,
	products repository.ProductRepository,
	cache CategoryCache,
	logger *zap.Logger,
) CategoryService {
	return &categoryServiceImpl{
		repo:     repo,
		products: products,
		cache:    cache,
		logger:   logger,
	}
}

func (s *categoryServiceImpl) Create(ctx context.Context, req *models.CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.BadRequest("Category name is required")
	}

	if req.ParentID != nil {
		if _, err := s.repo.FindByID(ctx, *req.ParentID, false); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.NotFound("Parent category with ID %s not found", *req.ParentID)
			}
			return nil, apperrors.Internal("Failed to load parent category", err)
		}
	}

	source := name
	if req.Slug != nil && strings.TrimSpace(*req.Slug) != "" {
		source = *req.Slug
	}
	slug, err := s.uniqueSlug(ctx, source, nil)
	if err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        name,
		Slug:        slug,
		Description: req.Description,
		ParentID:    req.ParentID,
		IsActive:    true,
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}

	if err := s.repo.Create(ctx, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.BadRequest("Category slug %q was taken concurrently, retry the request", slug)
		}
		s.logger.Error("Failed to create category", zap.String("slug", slug), zap.Error(err))
		return nil, apperrors.Internal("Failed to create category", err)
	}

	s.invalidate(ctx)
	s.logger.Info("Category created", zap.String("id", category.ID.String()), zap.String("slug", slug))
	return category, nil
}

func (s *categoryServiceImpl) FindAll(ctx context.Context, includeChildren, includeProductCount bool) ([]models.Category, error) {
	cacheKey := fmt.Sprintf("children=%t:counts=%t", includeChildren, includeProductCount)
	var version int64
	if s.cache != nil {
		cached, v, ok := s.cache.GetList(ctx, cacheKey)
		if ok {
			return cached, nil
		}
		version = v
	}

	categories, err := s.repo.FindAll(ctx, includeChildren)
	if err != nil {
		s.logger.Error("Failed to list categories", zap.Error(err))
		return nil, apperrors.Internal("Failed to list categories", err)
	}

	if includeProductCount {
		if err := s.attachProductCounts(ctx, categories); err != nil {
			return nil, err
		}
	}

	if s.cache != nil {
		s.cache.SetList(ctx, version, cacheKey, categories)
	}
	return categories, nil
}

func (s *categoryServiceImpl) attachProductCounts(ctx context.Context, categories []models.Category) error {
	ids := make([]uuid.UUID, 0, len(categories))
	for _, c := range categories {
		ids = append(ids, c.ID)
		for _, child := range c.Children {
			ids = append(ids, child.ID)
		}
	}

	counts, err := s.products.CountByCategories(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to count products per category", zap.Error(err))
		return apperrors.Internal("Failed to count products", err)
	}

	for i := range categories {
		n := counts[categories[i].ID]
		categories[i].ProductCount = &n
		for j := range categories[i].Children {
			cn := counts[categories[i].Children[j].ID]
			categories[i].Children[j].ProductCount = &cn
		}
	}
	return nil
}

func (s *categoryServiceImpl) FindOne(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.load(ctx, id, true)
}

func (s *categoryServiceImpl) FindBySlug(ctx context.Context, slug string) (*models.Category, error) {
	category, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Category with slug %q not found", slug)
		}
		return nil, apperrors.Internal("Failed to load category", err)
	}
	return category, nil
}

func (s *categoryServiceImpl) Update(ctx context.Context, id uuid.UUID, req *models.UpdateCategoryRequest) (*models.Category, error) {
	category, err := s.load(ctx, id, false)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperrors.BadRequest("Category name cannot be empty")
		}
		if name != category.Name {
			slug, err := s.uniqueSlug(ctx, name, &category.ID)
			if err != nil {
				return nil, err
			}
			updates["name"] = name
			updates["slug"] = slug
		}
	}

	switch {
	case req.ClearParent:
		updates["parent_id"] = nil
	case req.ParentID != nil && !sameParent(category.ParentID, *req.ParentID):
		if err := s.validateNewParent(ctx, id, *req.ParentID); err != nil {
			return nil, err
		}
		updates["parent_id"] = *req.ParentID
	}

	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.SortOrder != nil {
		updates["sort_order"] = *req.SortOrder
	}

	if len(updates) > 0 {
		if err := s.repo.Update(ctx, id, updates); err != nil {
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return nil, apperrors.NotFound("Category with ID %s not found", id)
			case errors.Is(err, gorm.ErrDuplicatedKey):
				return nil, apperrors.BadRequest("Category slug was taken concurrently, retry the request")
			}
			s.logger.Error("Failed to update category", zap.String("id", id.String()), zap.Error(err))
			return nil, apperrors.Internal("Failed to update category", err)
		}
		s.invalidate(ctx)
	}

	return s.load(ctx, id, true)
}

func sameParent(current *uuid.UUID, next uuid.UUID) bool {
	return current != nil && *current == next
}

// validateNewParent rejects self-parenting, unknown parents and parents that
// sit below the category in the tree.
func (s *categoryServiceImpl) validateNewParent(ctx context.Context, id, parentID uuid.UUID) error {
	if parentID == id {
		return apperrors.BadRequest("Category cannot be its own parent")
	}

	if _, err := s.repo.FindByID(ctx, parentID, false); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.BadRequest("Parent category with ID %s does not exist", parentID)
		}
		return apperrors.Internal("Failed to load parent category", err)
	}

	descendant, err := s.isDescendant(ctx, id, parentID)
	if err != nil {
		return apperrors.Internal("Failed to check category hierarchy", err)
	}
	if descendant {
		return apperrors.BadRequest("Cannot set a descendant category as parent (circular reference)")
	}
	return nil
}

// isDescendant reports whether candidateID is below ancestorID. The visited
// set stops the walk if the stored tree already contains a cycle.
func (s *categoryServiceImpl) isDescendant(ctx context.Context, ancestorID, candidateID uuid.UUID) (bool, error) {
	visited := map[uuid.UUID]struct{}{ancestorID: {}}
	return s.walkDescendants(ctx, ancestorID, candidateID, visited)
}

func (s *categoryServiceImpl) walkDescendants(ctx context.Context, nodeID, candidateID uuid.UUID, visited map[uuid.UUID]struct{}) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	children, err := s.repo.FindChildIDs(ctx, nodeID)
	if err != nil {
		return false, err
	}

	for _, child := range children {
		if child == candidateID {
			return true, nil
		}
	}

	for _, child := range children {
		if _, seen := visited[child]; seen {
			continue
		}
		visited[child] = struct{}{}

		found, err := s.walkDescendants(ctx, child, candidateID, visited)
		if err != nil || found {
			return found, err
		}
	}
	return false, nil
}

func (s *categoryServiceImpl) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := s.load(ctx, id, false); err != nil {
		return err
	}

	children, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return apperrors.Internal("Failed to count child categories", err)
	}
	if children > 0 {
		return apperrors.BadRequest("Cannot delete category with %d child categories", children)
	}

	products, err := s.products.CountByCategory(ctx, id)
	if err != nil {
		return apperrors.Internal("Failed to count category products", err)
	}
	if products > 0 {
		return apperrors.BadRequest("Cannot delete category with %d associated products", products)
	}

	affected, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		s.logger.Error("Failed to delete category", zap.String("id", id.String()), zap.Error(err))
		return apperrors.Internal("Failed to delete category", err)
	}
	if affected == 0 {
		return apperrors.NotFound("Category with ID %s not found", id)
	}

	s.invalidate(ctx)
	s.logger.Info("Category deleted", zap.String("id", id.String()))
	return nil
}

func (s *categoryServiceImpl) BulkRemove(ctx context.Context, ids []uuid.UUID) error {
	return fanOutDelete(ctx, ids, "categories", s.logger, s.Remove)
}

func (s *categoryServiceImpl) load(ctx context.Context, id uuid.UUID, withChildren bool) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id, withChildren)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("Category with ID %s not found", id)
		}
		return nil, apperrors.Internal("Failed to load category", err)
	}
	return category, nil
}

// uniqueSlug probes slug, slug-1, slug-2, ... until one is free among live
// categories. excludeID lets a category keep its own slug on rename.
func (s *categoryServiceImpl) uniqueSlug(ctx context.Context, source string, excludeID *uuid.UUID) (string, error) {
	base := Slugify(source)
	if base == "" {
		base = fallbackSlug
	}

	candidate := base
	for i := 1; ; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", apperrors.Internal("Failed to check slug availability", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (s *categoryServiceImpl) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}
