package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AddItemRequest sets the quantity of a product in the cart.
// Adding a product already in the cart replaces its quantity.
type AddItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// RemoveItemRequest removes a product line from the cart
type RemoveItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
}

// CheckoutRequest places an order from the cart contents
type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required"`
}

// CartItemResponse is a single cart line with product details
type CartItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	Slug      string          `json:"slug"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	InStock   bool            `json:"in_stock"`
}

// CartResponse is the API representation of a cart
type CartResponse struct {
	ID        uuid.UUID          `json:"id"`
	Items     []CartItemResponse `json:"items"`
	Total     decimal.Decimal    `json:"total"`
	ItemCount int                `json:"item_count"`
	UpdatedAt time.Time          `json:"updated_at"`
}
