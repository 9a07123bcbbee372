package catalog

import (
	"github.com/onlinekart/backend/internal/domain/shared"
)

// Category groups products in the storefront catalog.
// Its slug is derived from the name and is the public identifier
// used in URLs and product filters.
type Category struct {
	shared.BaseAggregateRoot
	Name string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Slug string `gorm:"type:varchar(120);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (Category) TableName() string {
	return "categories"
}

// NewCategory creates a new category with the given name and slug.
// The slug is expected to be generated via UniqueSlug against the
// repository before calling this.
func NewCategory(name, slug string) (*Category, error) {
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_SLUG", "Category slug cannot be empty")
	}

	return &Category{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
	}, nil
}

// Rename updates the category name. The caller is responsible for
// regenerating the slug when the name changes.
func (c *Category) Rename(name, slug string) error {
	if err := validateCategoryName(name); err != nil {
		return err
	}
	if slug == "" {
		return shared.NewDomainError("INVALID_SLUG", "Category slug cannot be empty")
	}

	c.Name = name
	c.Slug = slug
	c.Touch()
	c.IncrementVersion()

	return nil
}

// validateCategoryName validates the category name
func validateCategoryName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Category name cannot exceed 100 characters")
	}
	return nil
}
