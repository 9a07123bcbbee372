package catalog

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/onlinekart/backend/internal/domain/catalog"
	"github.com/onlinekart/backend/internal/domain/shared"
)

// ImageStore abstracts the object storage used for product images
type ImageStore interface {
	// Put stores an object under the given key
	Put(ctx context.Context, key string, body io.Reader, contentType string) error

	// Delete removes an object; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// URL returns the public URL for a stored object key
	URL(key string) string
}

// ProductService handles product-related business operations
type ProductService struct {
	productRepo  catalog.ProductRepository
	categoryRepo catalog.CategoryRepository
	images       ImageStore
}

// NewProductService creates a new ProductService
func NewProductService(
	productRepo catalog.ProductRepository,
	categoryRepo catalog.CategoryRepository,
	images ImageStore,
) *ProductService {
	return &ProductService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		images:       images,
	}
}

// Create creates a new product with an auto-generated unique slug
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	if _, err := s.categoryRepo.FindByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("INVALID_CATEGORY", "Category not found")
		}
		return nil, err
	}

	slug, err := catalog.UniqueSlug(req.Title, func(candidate string) (bool, error) {
		return s.productRepo.ExistsBySlug(ctx, candidate)
	})
	if err != nil {
		return nil, err
	}

	product, err := catalog.NewProduct(req.Title, slug, req.Description, req.Price, req.Stock, req.CategoryID)
	if err != nil {
		return nil, err
	}
	if req.IsActive != nil && !*req.IsActive {
		product.Deactivate()
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	return s.toResponse(product), nil
}

// GetBySlug retrieves a product by its slug. Inactive products are
// hidden from the storefront unless includeInactive is set.
func (s *ProductService) GetBySlug(ctx context.Context, slug string, includeInactive bool) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !product.IsActive && !includeInactive {
		return nil, shared.ErrNotFound
	}

	return s.toResponse(product), nil
}

// List retrieves products matching the filter, newest first
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) ([]ProductResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	domainFilter.Search = filter.Search
	if filter.Page > 0 && filter.PageSize > 0 {
		domainFilter.Page = filter.Page
		domainFilter.PageSize = filter.PageSize
	}
	if !filter.IncludeInactive {
		domainFilter.Filters["is_active"] = true
	}

	if filter.CategorySlug != "" {
		category, err := s.categoryRepo.FindBySlug(ctx, filter.CategorySlug)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				// unknown category slug yields an empty listing
				return []ProductResponse{}, 0, nil
			}
			return nil, 0, err
		}
		domainFilter.Filters["category_id"] = category.ID
	}

	products, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = *s.toResponse(&products[i])
	}

	return responses, total, nil
}

// Update updates a product. Only the provided fields change; the slug
// stays stable so existing links keep working.
func (s *ProductService) Update(ctx context.Context, slug string, req UpdateProductRequest) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	title := product.Title
	if req.Title != nil {
		title = *req.Title
	}
	description := product.Description
	if req.Description != nil {
		description = *req.Description
	}
	price := product.Price
	if req.Price != nil {
		price = *req.Price
	}
	stock := product.Stock
	if req.Stock != nil {
		stock = *req.Stock
	}
	categoryID := product.CategoryID
	if req.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("INVALID_CATEGORY", "Category not found")
			}
			return nil, err
		}
		categoryID = *req.CategoryID
	}

	if err := product.Update(title, product.Slug, description, price, stock, categoryID); err != nil {
		return nil, err
	}

	if req.IsActive != nil {
		if *req.IsActive {
			product.Activate()
		} else {
			product.Deactivate()
		}
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	return s.toResponse(product), nil
}

// Delete deletes a product
func (s *ProductService) Delete(ctx context.Context, slug string) error {
	product, err := s.productRepo.FindBySlug(ctx, slug)
	if err != nil {
		return err
	}

	if product.ImageKey != "" {
		if err := s.images.Delete(ctx, product.ImageKey); err != nil {
			return err
		}
	}

	return s.productRepo.Delete(ctx, product.ID)
}

// UploadImage stores a product image and records its storage key.
// A previous image is replaced.
func (s *ProductService) UploadImage(ctx context.Context, slug, filename, contentType string, body io.Reader) (*ProductResponse, error) {
	product, err := s.productRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	key := "products/" + product.ID.String() + "/" + uuid.NewString() + path.Ext(filename)
	if err := s.images.Put(ctx, key, body, contentType); err != nil {
		return nil, err
	}

	oldKey := product.ImageKey
	product.SetImageKey(key)
	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	if oldKey != "" {
		if err := s.images.Delete(ctx, oldKey); err != nil {
			return nil, err
		}
	}

	return s.toResponse(product), nil
}

func (s *ProductService) toResponse(p *catalog.Product) *ProductResponse {
	resp := &ProductResponse{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		IsActive:    p.IsActive,
		CategoryID:  p.CategoryID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.ImageKey != "" {
		resp.ImageURL = s.images.URL(p.ImageKey)
	}
	return resp
}
