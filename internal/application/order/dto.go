package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/onlinekart/backend/internal/domain/order"
	"github.com/shopspring/decimal"
)

// OrderItemResponse is a single order line in API responses
type OrderItemResponse struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderResponse is the API representation of an order
type OrderResponse struct {
	ID              uuid.UUID           `json:"id"`
	Status          string              `json:"status"`
	ShippingAddress string              `json:"shipping_address"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	Items           []OrderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

// OrderListFilter holds the query parameters for order listing
type OrderListFilter struct {
	Status   string `form:"status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// InvoiceData carries everything the invoice renderer needs
type InvoiceData struct {
	Order         OrderResponse
	CustomerName  string
	CustomerEmail string
}

// ToOrderResponse converts a domain order to its API representation
func ToOrderResponse(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i := range o.Items {
		item := &o.Items[i]
		items[i] = OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		}
	}

	return &OrderResponse{
		ID:              o.ID,
		Status:          o.Status.String(),
		ShippingAddress: o.ShippingAddress,
		TotalAmount:     o.TotalAmount,
		Items:           items,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}
