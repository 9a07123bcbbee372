package persistence

import (
	"context"

	appcart "github.com/onlinekart/backend/internal/application/cart"
	apporder "github.com/onlinekart/backend/internal/application/order"
	"github.com/onlinekart/backend/internal/domain/cart"
	"github.com/onlinekart/backend/internal/domain/catalog"
	"github.com/onlinekart/backend/internal/domain/order"
	"gorm.io/gorm"
)

// GormCheckoutScope implements the checkout transaction scope using
// GORM transactions. Checkout validates stock under row locks, so all
// repositories it hands out share one transaction.
type GormCheckoutScope struct {
	db *gorm.DB
}

// NewGormCheckoutScope creates a new GormCheckoutScope
func NewGormCheckoutScope(db *gorm.DB) *GormCheckoutScope {
	return &GormCheckoutScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormCheckoutScope) Execute(ctx context.Context, fn func(repos appcart.CheckoutRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormCheckoutRepositories{tx: tx}
		return fn(repos)
	})
}

// gormCheckoutRepositories provides access to all checkout repositories within a transaction
type gormCheckoutRepositories struct {
	tx *gorm.DB
}

// CartRepo returns the cart repository scoped to the current transaction
func (r *gormCheckoutRepositories) CartRepo() cart.CartRepository {
	return NewGormCartRepository(r.tx)
}

// ProductRepo returns the product repository scoped to the current transaction
func (r *gormCheckoutRepositories) ProductRepo() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// OrderRepo returns the order repository scoped to the current transaction
func (r *gormCheckoutRepositories) OrderRepo() order.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

// GormOrderScope implements the order lifecycle transaction scope
// using GORM transactions. Cancelling a paid order writes the order
// and restores product stock atomically.
type GormOrderScope struct {
	db *gorm.DB
}

// NewGormOrderScope creates a new GormOrderScope
func NewGormOrderScope(db *gorm.DB) *GormOrderScope {
	return &GormOrderScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormOrderScope) Execute(ctx context.Context, fn func(repos apporder.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormOrderRepositories{tx: tx}
		return fn(repos)
	})
}

// gormOrderRepositories provides access to the order lifecycle repositories within a transaction
type gormOrderRepositories struct {
	tx *gorm.DB
}

// OrderRepo returns the order repository scoped to the current transaction
func (r *gormOrderRepositories) OrderRepo() order.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

// ProductRepo returns the product repository scoped to the current transaction
func (r *gormOrderRepositories) ProductRepo() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

// Ensure the scopes implement their application interfaces
var _ appcart.CheckoutScope = (*GormCheckoutScope)(nil)
var _ appcart.CheckoutRepositories = (*gormCheckoutRepositories)(nil)
var _ apporder.TransactionScope = (*GormOrderScope)(nil)
var _ apporder.TransactionalRepositories = (*gormOrderRepositories)(nil)
