package cart

import (
	"context"

	"github.com/google/uuid"
)

// CartRepository defines the interface for cart persistence
type CartRepository interface {
	// FindByUserID finds the user's cart with its items, or returns
	// shared.ErrNotFound when the user has no cart yet
	FindByUserID(ctx context.Context, userID uuid.UUID) (*Cart, error)

	// Save creates or updates a cart together with its items.
	// Removed items are deleted from the items table.
	Save(ctx context.Context, cart *Cart) error

	// DeleteItems removes all items of a cart
	DeleteItems(ctx context.Context, cartID uuid.UUID) error
}
