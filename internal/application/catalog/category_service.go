package catalog

import (
	"context"

	"github.com/onlinekart/backend/internal/domain/catalog"
	"github.com/onlinekart/backend/internal/domain/shared"
)

// CategoryService handles category-related business operations
type CategoryService struct {
	categoryRepo catalog.CategoryRepository
	productRepo  catalog.ProductRepository
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(
	categoryRepo catalog.CategoryRepository,
	productRepo catalog.ProductRepository,
) *CategoryService {
	return &CategoryService{
		categoryRepo: categoryRepo,
		productRepo:  productRepo,
	}
}

// Create creates a new category with an auto-generated unique slug
func (s *CategoryService) Create(ctx context.Context, req CreateCategoryRequest) (*CategoryResponse, error) {
	exists, err := s.categoryRepo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Category with this name already exists")
	}

	slug, err := catalog.UniqueSlug(req.Name, func(candidate string) (bool, error) {
		return s.categoryRepo.ExistsBySlug(ctx, candidate)
	})
	if err != nil {
		return nil, err
	}

	category, err := catalog.NewCategory(req.Name, slug)
	if err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}

	return ToCategoryResponse(category), nil
}

// GetBySlug retrieves a category by its slug
func (s *CategoryService) GetBySlug(ctx context.Context, slug string) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	return ToCategoryResponse(category), nil
}

// List retrieves categories matching the filter
func (s *CategoryService) List(ctx context.Context, filter CategoryListFilter) ([]CategoryResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	domainFilter.OrderBy = "name"
	domainFilter.OrderDir = "asc"
	domainFilter.Search = filter.Search
	if filter.Page > 0 && filter.PageSize > 0 {
		domainFilter.Page = filter.Page
		domainFilter.PageSize = filter.PageSize
	}

	categories, err := s.categoryRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.categoryRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]CategoryResponse, len(categories))
	for i := range categories {
		responses[i] = *ToCategoryResponse(&categories[i])
	}

	return responses, total, nil
}

// Update renames a category. The slug stays stable so existing links
// keep working.
func (s *CategoryService) Update(ctx context.Context, slug string, req UpdateCategoryRequest) (*CategoryResponse, error) {
	category, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if req.Name != category.Name {
		exists, err := s.categoryRepo.ExistsByName(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Category with this name already exists")
		}
	}

	if err := category.Rename(req.Name, category.Slug); err != nil {
		return nil, err
	}

	if err := s.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}

	return ToCategoryResponse(category), nil
}

// Delete deletes a category. Categories still referenced by products
// cannot be removed.
func (s *CategoryService) Delete(ctx context.Context, slug string) error {
	category, err := s.categoryRepo.FindBySlug(ctx, slug)
	if err != nil {
		return err
	}

	hasProducts, err := s.categoryRepo.HasProducts(ctx, category.ID)
	if err != nil {
		return err
	}
	if hasProducts {
		return shared.NewDomainError("CATEGORY_IN_USE", "Category still has products assigned")
	}

	return s.categoryRepo.Delete(ctx, category.ID)
}
