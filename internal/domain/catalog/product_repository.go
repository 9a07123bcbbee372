package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/onlinekart/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindBySlug finds a product by its slug
	FindBySlug(ctx context.Context, slug string) (*Product, error)

	// FindAll finds all products matching the filter.
	// Supported filter keys: "is_active" (bool), "category_id" (uuid.UUID);
	// Search matches the title case-insensitively.
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)

	// FindByIDsForUpdate loads the given products with row locks held
	// for the duration of the surrounding transaction. Used by checkout.
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// Save creates or updates a product
	Save(ctx context.Context, product *Product) error

	// Delete deletes a product
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts products matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsBySlug checks if a product with the given slug exists
	ExistsBySlug(ctx context.Context, slug string) (bool, error)

	// CountByCategory counts products referencing a category
	CountByCategory(ctx context.Context, categoryID uuid.UUID) (int64, error)
}
