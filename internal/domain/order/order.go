package order

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onlinekart/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an order
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is a known order status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusPaid || target == StatusCancelled
	case StatusPaid:
		return target == StatusShipped || target == StatusCancelled
	case StatusShipped:
		return target == StatusDelivered || target == StatusCancelled
	case StatusDelivered, StatusCancelled:
		return false // terminal
	}
	return false
}

// OrderItem is a line in a placed order. Title and unit price are
// snapshots taken at checkout; later product edits do not affect them.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Title     string          `gorm:"type:varchar(200);not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal returns quantity times the frozen unit price
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is a placed order. It is the aggregate root for order
// operations; items are immutable after checkout.
type Order struct {
	shared.BaseAggregateRoot
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status          Status          `gorm:"type:varchar(20);not null;default:'pending'"`
	ShippingAddress string          `gorm:"type:text;not null"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// Line describes a product line handed to NewOrder at checkout
type Line struct {
	ProductID uuid.UUID
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// NewOrder creates an order from checkout lines. The order starts in
// the given status (checkout creates paid orders directly since no
// payment gateway is involved). Total is the sum of line subtotals.
func NewOrder(userID uuid.UUID, shippingAddress string, status Status, lines []Line) (*Order, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_USER", "User ID cannot be empty")
	}
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, shared.NewDomainError("INVALID_ADDRESS", "Shipping address is required")
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown order status")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_ORDER", "Order must contain at least one item")
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Status:            status,
		ShippingAddress:   strings.TrimSpace(shippingAddress),
		TotalAmount:       decimal.Zero,
		Items:             make([]OrderItem, 0, len(lines)),
	}

	now := time.Now()
	for _, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
		}
		if line.Quantity < 1 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be at least 1")
		}
		if line.UnitPrice.IsNegative() {
			return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
		}

		o.Items = append(o.Items, OrderItem{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: line.ProductID,
			Title:     line.Title,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.Round(2),
			CreatedAt: now,
		})
	}
	o.recalculateTotal()

	return o, nil
}

// Ship transitions the order to shipped
func (o *Order) Ship() error {
	return o.transition(StatusShipped)
}

// Deliver transitions the order to delivered
func (o *Order) Deliver() error {
	return o.transition(StatusDelivered)
}

// Cancel transitions the order to cancelled. The caller restores
// product stock for paid orders.
func (o *Order) Cancel() error {
	return o.transition(StatusCancelled)
}

func (o *Order) transition(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_TRANSITION",
			"Cannot change order status from "+o.Status.String()+" to "+target.String())
	}

	o.Status = target
	o.Touch()
	o.IncrementVersion()

	return nil
}

// IsCancelled returns true when the order was cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == StatusCancelled
}

// IsTerminal returns true when no further transitions are possible
func (o *Order) IsTerminal() bool {
	return o.Status == StatusDelivered || o.Status == StatusCancelled
}

// ItemCount returns the number of lines in the order
func (o *Order) ItemCount() int {
	return len(o.Items)
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for i := range o.Items {
		total = total.Add(o.Items[i].Subtotal())
	}
	o.TotalAmount = total.Round(2)
}
