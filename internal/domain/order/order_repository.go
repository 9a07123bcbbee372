package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/onlinekart/backend/internal/domain/shared"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID finds an order with its items
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByUser finds a user's orders, newest first.
	// Supported filter keys: "status" (Status).
	FindByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Order, error)

	// CountByUser counts a user's orders matching the filter
	CountByUser(ctx context.Context, userID uuid.UUID, filter shared.Filter) (int64, error)

	// Save creates or updates an order together with its items
	Save(ctx context.Context, order *Order) error
}
