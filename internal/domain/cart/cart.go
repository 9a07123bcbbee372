package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/onlinekart/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CartItem is a line in a shopping cart. At most one line exists per
// product; setting a quantity replaces the line rather than stacking.
type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CartID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_product,priority:1"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cart_item_product,priority:2"`
	Quantity  int       `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (CartItem) TableName() string {
	return "cart_items"
}

// Cart is a user's shopping cart. Each user has exactly one cart,
// created lazily on first use; checkout empties it.
type Cart struct {
	shared.BaseAggregateRoot
	UserID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex"`
	Items  []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Cart) TableName() string {
	return "carts"
}

// NewCart creates an empty cart for the given user
func NewCart(userID uuid.UUID) (*Cart, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}

	return &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Items:             make([]CartItem, 0),
	}, nil
}

// SetItem sets the quantity for a product line, creating the line if
// it does not exist. The quantity replaces any previous value.
func (c *Cart) SetItem(productID uuid.UUID, quantity int) error {
	if productID == uuid.Nil {
		return shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity < 1 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
	}

	now := time.Now()
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity = quantity
			c.Items[i].UpdatedAt = now
			c.UpdatedAt = now
			c.IncrementVersion()
			return nil
		}
	}

	c.Items = append(c.Items, CartItem{
		ID:        uuid.New(),
		CartID:    c.ID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	})
	c.UpdatedAt = now
	c.IncrementVersion()

	return nil
}

// RemoveItem removes the line for the given product
func (c *Cart) RemoveItem(productID uuid.UUID) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = time.Now()
			c.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("ITEM_NOT_FOUND", "Product is not in the cart")
}

// Clear removes all lines from the cart
func (c *Cart) Clear() {
	if len(c.Items) == 0 {
		return
	}

	c.Items = c.Items[:0]
	c.UpdatedAt = time.Now()
	c.IncrementVersion()
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the number of distinct product lines
func (c *Cart) ItemCount() int {
	return len(c.Items)
}

// GetItem returns the line for a product, or nil if absent
func (c *Cart) GetItem(productID uuid.UUID) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// Subtotal computes quantity times unit price for a single line
func Subtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
