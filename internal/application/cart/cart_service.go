package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	orderapp "github.com/onlinekart/backend/internal/application/order"
	"github.com/onlinekart/backend/internal/domain/cart"
	"github.com/onlinekart/backend/internal/domain/catalog"
	"github.com/onlinekart/backend/internal/domain/order"
	"github.com/onlinekart/backend/internal/domain/shared"
	"github.com/onlinekart/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService handles shopping cart operations
type CartService struct {
	cartRepo        cart.CartRepository
	productRepo     catalog.ProductRepository
	scope           CheckoutScope
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// SetBusinessMetrics sets the business metrics collector
func (s *CartService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// NewCartService creates a new CartService
func NewCartService(
	cartRepo cart.CartRepository,
	productRepo catalog.ProductRepository,
	scope CheckoutScope,
	logger *zap.Logger,
) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		scope:       scope,
		logger:      logger,
	}
}

// Get retrieves the user's cart. Users without a cart get an empty one;
// nothing is persisted until an item is added.
func (s *CartService) Get(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	c, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &CartResponse{Items: []CartItemResponse{}, Total: decimal.Zero}, nil
		}
		return nil, err
	}

	return s.toResponse(ctx, c)
}

// AddItem puts a product in the cart at the requested quantity.
// A product already in the cart has its quantity replaced, not added.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, req AddItemRequest) (*CartResponse, error) {
	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, shared.NewDomainError("PRODUCT_NOT_FOUND", "Product not found")
	}
	if !product.HasStock(req.Quantity) {
		return nil, shared.NewDomainError("INSUFFICIENT_STOCK", "Not enough stock for "+product.Title)
	}

	c, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		c, err = cart.NewCart(userID)
		if err != nil {
			return nil, err
		}
	}

	if err := c.SetItem(req.ProductID, req.Quantity); err != nil {
		return nil, err
	}

	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("Cart item set",
		zap.String("user_id", userID.String()),
		zap.String("product_id", req.ProductID.String()),
		zap.Int("quantity", req.Quantity))

	return s.toResponse(ctx, c)
}

// RemoveItem removes a product line from the cart
func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, req RemoveItemRequest) (*CartResponse, error) {
	c, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("ITEM_NOT_FOUND", "Product is not in the cart")
		}
		return nil, err
	}

	if err := c.RemoveItem(req.ProductID); err != nil {
		return nil, err
	}

	if err := s.cartRepo.Save(ctx, c); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, c)
}

// Clear empties the cart. Clearing a missing or already empty cart is
// not an error.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	c, err := s.cartRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &CartResponse{Items: []CartItemResponse{}, Total: decimal.Zero}, nil
		}
		return nil, err
	}

	c.Clear()
	if err := s.cartRepo.DeleteItems(ctx, c.ID); err != nil {
		return nil, err
	}

	return s.toResponse(ctx, c)
}

// Checkout turns the cart into a paid order in a single transaction.
// Product rows are locked while stock is validated and deducted, unit
// prices are frozen into the order lines, and the cart is emptied.
func (s *CartService) Checkout(ctx context.Context, userID uuid.UUID, req CheckoutRequest) (*orderapp.OrderResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "cart.checkout")
	defer span.End()

	var response *orderapp.OrderResponse

	err := s.scope.Execute(ctx, func(repos CheckoutRepositories) error {
		c, err := repos.CartRepo().FindByUserID(ctx, userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError("EMPTY_CART", "Cart is empty")
			}
			return err
		}
		if c.IsEmpty() {
			return shared.NewDomainError("EMPTY_CART", "Cart is empty")
		}
		telemetry.SetAttributes(span,
			telemetry.SpanAttrUserID, userID.String(),
			telemetry.SpanAttrItemCount, len(c.Items))

		ids := make([]uuid.UUID, len(c.Items))
		for i := range c.Items {
			ids[i] = c.Items[i].ProductID
		}

		products, err := repos.ProductRepo().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*catalog.Product, len(products))
		for i := range products {
			byID[products[i].ID] = &products[i]
		}

		lines := make([]order.Line, 0, len(c.Items))
		for i := range c.Items {
			item := &c.Items[i]
			product, ok := byID[item.ProductID]
			if !ok || !product.IsActive {
				return shared.NewDomainError("PRODUCT_UNAVAILABLE", "A product in the cart is no longer available")
			}
			if !product.HasStock(item.Quantity) {
				return shared.NewDomainError("INSUFFICIENT_STOCK", "Not enough stock for "+product.Title)
			}
			lines = append(lines, order.Line{
				ProductID: product.ID,
				Title:     product.Title,
				Quantity:  item.Quantity,
				UnitPrice: product.Price,
			})
		}

		o, err := order.NewOrder(userID, req.ShippingAddress, order.StatusPaid, lines)
		if err != nil {
			return err
		}

		for i := range lines {
			product := byID[lines[i].ProductID]
			if err := product.DeductStock(lines[i].Quantity); err != nil {
				return err
			}
			if err := repos.ProductRepo().Save(ctx, product); err != nil {
				return err
			}
		}

		if err := repos.OrderRepo().Save(ctx, o); err != nil {
			return err
		}

		if err := repos.CartRepo().DeleteItems(ctx, c.ID); err != nil {
			return err
		}

		telemetry.AddEvent(span, "order_created",
			"order_id", o.ID.String(),
			"lines", len(lines),
			"total", o.TotalAmount.String())

		response = orderapp.ToOrderResponse(o)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if s.businessMetrics != nil {
			var domainErr *shared.DomainError
			if errors.As(err, &domainErr) {
				s.businessMetrics.RecordCheckoutFailed(ctx, domainErr.Code)
			}
		}
		return nil, err
	}
	telemetry.SetOK(span)

	if s.businessMetrics != nil {
		s.businessMetrics.RecordOrderPlaced(ctx, response.TotalAmount)
	}

	s.logger.Info("Checkout completed",
		zap.String("user_id", userID.String()),
		zap.String("order_id", response.ID.String()),
		zap.String("total", response.TotalAmount.String()))

	return response, nil
}

// toResponse builds the cart view with current product details.
// Lines whose product has been deleted are omitted.
func (s *CartService) toResponse(ctx context.Context, c *cart.Cart) (*CartResponse, error) {
	items := make([]CartItemResponse, 0, len(c.Items))
	total := decimal.Zero

	for i := range c.Items {
		item := &c.Items[i]
		product, err := s.productRepo.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}

		subtotal := cart.Subtotal(product.Price, item.Quantity)
		items = append(items, CartItemResponse{
			ProductID: product.ID,
			Title:     product.Title,
			Slug:      product.Slug,
			UnitPrice: product.Price,
			Quantity:  item.Quantity,
			Subtotal:  subtotal,
			InStock:   product.HasStock(item.Quantity),
		})
		total = total.Add(subtotal)
	}

	return &CartResponse{
		ID:        c.ID,
		Items:     items,
		Total:     total,
		ItemCount: len(items),
		UpdatedAt: c.UpdatedAt,
	}, nil
}
