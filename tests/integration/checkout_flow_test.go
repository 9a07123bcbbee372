package integration

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cartapp "github.com/onlinekart/backend/internal/application/cart"
	"github.com/onlinekart/backend/internal/domain/order"
	"github.com/onlinekart/backend/internal/domain/shared"
	"github.com/onlinekart/backend/internal/infrastructure/persistence"
)

// TestCheckoutFlow_Integration walks a cart from add_item to a placed order
// against a real PostgreSQL database, verifying stock deduction and cart
// cleanup happen atomically.
func TestCheckoutFlow_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	ctx := context.Background()

	cartRepo := persistence.NewGormCartRepository(testDB.DB)
	productRepo := persistence.NewGormProductRepository(testDB.DB)
	orderRepo := persistence.NewGormOrderRepository(testDB.DB)
	scope := persistence.NewGormCheckoutScope(testDB.DB)
	svc := cartapp.NewCartService(cartRepo, productRepo, scope, zap.NewNop())

	user := testDB.SeedUser("shopper", "shopper@example.com")
	category := testDB.SeedCategory("Electronics", "electronics")
	mouse := testDB.SeedProduct(category.ID, "Wireless Mouse", "wireless-mouse", 29.99, 10)
	keyboard := testDB.SeedProduct(category.ID, "Mechanical Keyboard", "mechanical-keyboard", 79.99, 2)

	t.Run("add items and check out", func(t *testing.T) {
		_, err := svc.AddItem(ctx, user.ID, cartapp.AddItemRequest{ProductID: mouse.ID, Quantity: 2})
		require.NoError(t, err)

		resp, err := svc.AddItem(ctx, user.ID, cartapp.AddItemRequest{ProductID: keyboard.ID, Quantity: 1})
		require.NoError(t, err)
		assert.Len(t, resp.Items, 2)
		assert.True(t, resp.Total.Equal(decimal.NewFromFloat(139.97)), "total was %s", resp.Total)

		placed, err := svc.Checkout(ctx, user.ID, cartapp.CheckoutRequest{ShippingAddress: "1 Main Street, Springfield"})
		require.NoError(t, err)
		assert.Equal(t, order.StatusPaid.String(), placed.Status)
		assert.True(t, placed.TotalAmount.Equal(decimal.NewFromFloat(139.97)))
		assert.Len(t, placed.Items, 2)

		// Stock was deducted inside the checkout transaction
		mouseAfter, err := productRepo.FindByID(ctx, mouse.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, mouseAfter.Stock)

		keyboardAfter, err := productRepo.FindByID(ctx, keyboard.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, keyboardAfter.Stock)

		// The cart is emptied
		cartAfter, err := svc.Get(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, cartAfter.Items)

		// The order is persisted with frozen prices
		saved, err := orderRepo.FindByID(ctx, placed.ID)
		require.NoError(t, err)
		assert.Equal(t, user.ID, saved.UserID)
		for i := range saved.Items {
			if saved.Items[i].ProductID == mouse.ID {
				assert.True(t, saved.Items[i].UnitPrice.Equal(decimal.NewFromFloat(29.99)))
			}
		}
	})

	t.Run("insufficient stock rolls back the whole checkout", func(t *testing.T) {
		_, err := svc.AddItem(ctx, user.ID, cartapp.AddItemRequest{ProductID: mouse.ID, Quantity: 3})
		require.NoError(t, err)
		_, err = svc.AddItem(ctx, user.ID, cartapp.AddItemRequest{ProductID: keyboard.ID, Quantity: 1})
		require.NoError(t, err)

		// Someone else buys the last keyboard before this user checks out
		keyboardNow, err := productRepo.FindByID(ctx, keyboard.ID)
		require.NoError(t, err)
		require.NoError(t, keyboardNow.DeductStock(keyboardNow.Stock))
		require.NoError(t, productRepo.Save(ctx, keyboardNow))

		_, err = svc.Checkout(ctx, user.ID, cartapp.CheckoutRequest{ShippingAddress: "1 Main Street, Springfield"})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INSUFFICIENT_STOCK", domainErr.Code)

		// The mouse stock is untouched even though it was processed first
		mouseAfter, err := productRepo.FindByID(ctx, mouse.ID)
		require.NoError(t, err)
		assert.Equal(t, 8, mouseAfter.Stock)

		// The cart still holds both lines
		cartAfter, err := cartRepo.FindByUserID(ctx, user.ID)
		require.NoError(t, err)
		assert.Len(t, cartAfter.Items, 2)

		// No extra order was created
		count, err := orderRepo.CountByUser(ctx, user.ID, shared.Filter{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("checkout with empty cart fails", func(t *testing.T) {
		empty := testDB.SeedUser("window-shopper", "window@example.com")

		_, err := svc.Checkout(ctx, empty.ID, cartapp.CheckoutRequest{ShippingAddress: "2 Side Street"})
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "EMPTY_CART", domainErr.Code)
	})
}
