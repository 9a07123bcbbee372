package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/onlinekart/backend/internal/domain/catalog"
	"github.com/onlinekart/backend/internal/domain/identity"
	"github.com/onlinekart/backend/internal/domain/order"
	"github.com/onlinekart/backend/internal/domain/shared"
	"github.com/onlinekart/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// OrderService handles order lifecycle operations
type OrderService struct {
	orderRepo order.OrderRepository
	userRepo  identity.UserRepository
	scope     TransactionScope
	logger    *zap.Logger
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo order.OrderRepository,
	userRepo identity.UserRepository,
	scope TransactionScope,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		scope:     scope,
		logger:    logger,
	}
}

// ListForUser retrieves a user's orders, newest first
func (s *OrderService) ListForUser(ctx context.Context, userID uuid.UUID, filter OrderListFilter) ([]OrderResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 && filter.PageSize > 0 {
		domainFilter.Page = filter.Page
		domainFilter.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		status := order.Status(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown order status")
		}
		domainFilter.Filters["status"] = status
	}

	orders, err := s.orderRepo.FindByUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.orderRepo.CountByUser(ctx, userID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]OrderResponse, len(orders))
	for i := range orders {
		responses[i] = *ToOrderResponse(&orders[i])
	}

	return responses, total, nil
}

// GetForUser retrieves a single order. Customers only see their own
// orders; other users' orders read as not found rather than forbidden.
func (s *OrderService) GetForUser(ctx context.Context, userID uuid.UUID, isStaff bool, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.findVisible(ctx, userID, isStaff, orderID)
	if err != nil {
		return nil, err
	}

	return ToOrderResponse(o), nil
}

// Ship marks a paid order as shipped
func (s *OrderService) Ship(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transitionOrder(ctx, orderID, (*order.Order).Ship)
}

// Deliver marks a shipped order as delivered
func (s *OrderService) Deliver(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transitionOrder(ctx, orderID, (*order.Order).Deliver)
}

// Cancel cancels an order and restores the stock its lines had
// deducted. Products deleted since checkout are skipped.
func (s *OrderService) Cancel(ctx context.Context, userID uuid.UUID, isStaff bool, orderID uuid.UUID) (*OrderResponse, error) {
	var response *OrderResponse

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !isStaff && o.UserID != userID {
			return shared.ErrNotFound
		}

		if err := o.Cancel(); err != nil {
			return err
		}

		// Lock the product rows before restoring stock, the same way
		// checkout locks them before deducting. An unlocked
		// read-modify-write here could lose a concurrent deduction.
		ids := make([]uuid.UUID, len(o.Items))
		for i := range o.Items {
			ids[i] = o.Items[i].ProductID
		}
		products, err := repos.ProductRepo().FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*catalog.Product, len(products))
		for i := range products {
			byID[products[i].ID] = &products[i]
		}

		for i := range o.Items {
			item := &o.Items[i]
			product, ok := byID[item.ProductID]
			if !ok {
				// product deleted since checkout
				continue
			}
			if err := product.RestoreStock(item.Quantity); err != nil {
				return err
			}
			if err := repos.ProductRepo().Save(ctx, product); err != nil {
				return err
			}
		}

		if err := repos.OrderRepo().Save(ctx, o); err != nil {
			return err
		}

		response = ToOrderResponse(o)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID.String()),
		zap.String("user_id", userID.String()))

	return response, nil
}

// GetInvoice collects the data for an order invoice
func (s *OrderService) GetInvoice(ctx context.Context, userID uuid.UUID, isStaff bool, orderID uuid.UUID) (*InvoiceData, error) {
	o, err := s.findVisible(ctx, userID, isStaff, orderID)
	if err != nil {
		return nil, err
	}

	customer, err := s.userRepo.FindByID(ctx, o.UserID)
	if err != nil {
		return nil, err
	}

	name := customer.FullName()
	if name == "" {
		name = customer.Username
	}

	return &InvoiceData{
		Order:         *ToOrderResponse(o),
		CustomerName:  name,
		CustomerEmail: customer.Email,
	}, nil
}

// findVisible loads an order and enforces owner visibility
func (s *OrderService) findVisible(ctx context.Context, userID uuid.UUID, isStaff bool, orderID uuid.UUID) (*order.Order, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !isStaff && o.UserID != userID {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (s *OrderService) transitionOrder(ctx context.Context, orderID uuid.UUID, transition func(*order.Order) error) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "transition",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID.String()))
	defer span.End()

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := transition(o); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.orderRepo.Save(ctx, o); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderStatus, o.Status.String())

	s.logger.Info("Order status changed",
		zap.String("order_id", o.ID.String()),
		zap.String("status", o.Status.String()))

	return ToOrderResponse(o), nil
}
