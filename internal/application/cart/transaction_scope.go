package cart

import (
	"context"

	"github.com/onlinekart/backend/internal/domain/cart"
	"github.com/onlinekart/backend/internal/domain/catalog"
	"github.com/onlinekart/backend/internal/domain/order"
)

// CheckoutScope provides transactional access to the repositories
// checkout touches. Creating the order, deducting stock, and clearing
// the cart must commit or roll back as one unit.
type CheckoutScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos CheckoutRepositories) error) error
}

// CheckoutRepositories provides access to the cart, product, and order
// repositories within a transaction. All repositories returned share
// the same underlying database transaction.
type CheckoutRepositories interface {
	// CartRepo returns the cart repository scoped to the current transaction
	CartRepo() cart.CartRepository
	// ProductRepo returns the product repository scoped to the current transaction
	ProductRepo() catalog.ProductRepository
	// OrderRepo returns the order repository scoped to the current transaction
	OrderRepo() order.OrderRepository
}

// NoOpCheckoutScope is a checkout scope that doesn't actually use
// transactions. This is useful for testing or when transaction support
// is not required.
type NoOpCheckoutScope struct {
	cartRepo    cart.CartRepository
	productRepo catalog.ProductRepository
	orderRepo   order.OrderRepository
}

// NewNoOpCheckoutScope creates a NoOpCheckoutScope with the given repositories.
func NewNoOpCheckoutScope(
	cartRepo cart.CartRepository,
	productRepo catalog.ProductRepository,
	orderRepo order.OrderRepository,
) *NoOpCheckoutScope {
	return &NoOpCheckoutScope{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpCheckoutScope) Execute(_ context.Context, fn func(repos CheckoutRepositories) error) error {
	return fn(s)
}

// CartRepo returns the cart repository.
func (s *NoOpCheckoutScope) CartRepo() cart.CartRepository {
	return s.cartRepo
}

// ProductRepo returns the product repository.
func (s *NoOpCheckoutScope) ProductRepo() catalog.ProductRepository {
	return s.productRepo
}

// OrderRepo returns the order repository.
func (s *NoOpCheckoutScope) OrderRepo() order.OrderRepository {
	return s.orderRepo
}

// Ensure NoOpCheckoutScope implements both interfaces
var _ CheckoutScope = (*NoOpCheckoutScope)(nil)
var _ CheckoutRepositories = (*NoOpCheckoutScope)(nil)
