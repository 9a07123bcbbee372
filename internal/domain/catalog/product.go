package catalog

import (
	"github.com/google/uuid"
	"github.com/onlinekart/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is a sellable item in the catalog.
// It is the aggregate root for product-related operations; stock
// lives directly on the product and is deducted at checkout.
type Product struct {
	shared.BaseAggregateRoot
	Title       string          `gorm:"type:varchar(200);not null"`
	Slug        string          `gorm:"type:varchar(240);not null;uniqueIndex"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Stock       int             `gorm:"not null;default:0"`
	IsActive    bool            `gorm:"not null;default:true"`
	CategoryID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ImageKey    string          `gorm:"type:varchar(500)"` // object storage key, empty when no image uploaded
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new active product. The slug is expected to be
// generated via UniqueSlug against the repository before calling this.
func NewProduct(title, slug, description string, price decimal.Decimal, stock int, categoryID uuid.UUID) (*Product, error) {
	if err := validateProductTitle(title); err != nil {
		return nil, err
	}
	if slug == "" {
		return nil, shared.NewDomainError("INVALID_SLUG", "Product slug cannot be empty")
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	if stock < 0 {
		return nil, shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	if categoryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CATEGORY", "Category is required")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             title,
		Slug:              slug,
		Description:       description,
		Price:             price.Round(2),
		Stock:             stock,
		IsActive:          true,
		CategoryID:        categoryID,
	}, nil
}

// Update updates the product's basic information. The caller is
// responsible for regenerating the slug when the title changes.
func (p *Product) Update(title, slug, description string, price decimal.Decimal, stock int, categoryID uuid.UUID) error {
	if err := validateProductTitle(title); err != nil {
		return err
	}
	if slug == "" {
		return shared.NewDomainError("INVALID_SLUG", "Product slug cannot be empty")
	}
	if err := validatePrice(price); err != nil {
		return err
	}
	if stock < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	if categoryID == uuid.Nil {
		return shared.NewDomainError("INVALID_CATEGORY", "Category is required")
	}

	p.Title = title
	p.Slug = slug
	p.Description = description
	p.Price = price.Round(2)
	p.Stock = stock
	p.CategoryID = categoryID
	p.Touch()
	p.IncrementVersion()

	return nil
}

// Activate makes the product visible and purchasable
func (p *Product) Activate() {
	if p.IsActive {
		return
	}
	p.IsActive = true
	p.Touch()
	p.IncrementVersion()
}

// Deactivate hides the product from the storefront
func (p *Product) Deactivate() {
	if !p.IsActive {
		return
	}
	p.IsActive = false
	p.Touch()
	p.IncrementVersion()
}

// SetImageKey records the object storage key of the product image
func (p *Product) SetImageKey(key string) {
	p.ImageKey = key
	p.Touch()
	p.IncrementVersion()
}

// HasStock reports whether the requested quantity can be fulfilled
func (p *Product) HasStock(quantity int) bool {
	return quantity > 0 && p.Stock >= quantity
}

// DeductStock removes quantity units from stock. Stock never goes
// negative; callers must hold a row lock during checkout.
func (p *Product) DeductStock(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if p.Stock < quantity {
		return shared.ErrInsufficientStock
	}

	p.Stock -= quantity
	p.Touch()
	p.IncrementVersion()

	return nil
}

// RestoreStock returns quantity units to stock, e.g. when a paid
// order is cancelled.
func (p *Product) RestoreStock(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}

	p.Stock += quantity
	p.Touch()
	p.IncrementVersion()

	return nil
}

// validateProductTitle validates the product title
func validateProductTitle(title string) error {
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Product title cannot be empty")
	}
	if len(title) > 200 {
		return shared.NewDomainError("INVALID_TITLE", "Product title cannot exceed 200 characters")
	}
	return nil
}

// validatePrice validates a product price
func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return shared.NewDomainError("INVALID_PRICE", "Price must be greater than zero")
	}
	return nil
}
