// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics provides business metrics for the storefront.
// It tracks registrations, checkouts, and catalog stock health.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	userRegisteredTotal *Counter
	orderPlacedTotal    *Counter
	orderRevenueTotal   *Counter
	checkoutFailedTotal *Counter

	// Gauge metrics (point-in-time values)
	lowStockCount   *Gauge
	activeCartCount *Gauge

	// Periodic collector
	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	// Data provider for periodic collection
	catalogProvider CatalogMetricsProvider
}

// CatalogMetricsProvider provides catalog and cart data for periodic
// metrics collection. This interface lets the telemetry layer query
// aggregate state without depending on the domain packages directly.
type CatalogMetricsProvider interface {
	// GetLowStockCount returns the number of active products at or
	// below the given stock threshold
	GetLowStockCount(ctx context.Context, threshold int) (int64, error)

	// GetActiveCartCount returns the number of carts holding at least one item
	GetActiveCartCount(ctx context.Context) (int64, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter             metric.Meter
	Logger            *zap.Logger
	CollectInterval   time.Duration // Default: 5 minutes
	LowStockThreshold int           // Default: 5
	CatalogProvider   CatalogMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		catalogProvider: cfg.CatalogProvider,
	}

	var err error

	bm.userRegisteredTotal, err = NewCounter(
		cfg.Meter,
		"kart_user_registered_total",
		"Total number of registered accounts",
		"{users}",
	)
	if err != nil {
		return nil, err
	}

	bm.orderPlacedTotal, err = NewCounter(
		cfg.Meter,
		"kart_order_placed_total",
		"Total number of orders placed at checkout",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	bm.orderRevenueTotal, err = NewCounter(
		cfg.Meter,
		"kart_order_revenue_total",
		"Total order revenue in cents",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	bm.checkoutFailedTotal, err = NewCounter(
		cfg.Meter,
		"kart_checkout_failed_total",
		"Total number of failed checkout attempts",
		"{checkouts}",
	)
	if err != nil {
		return nil, err
	}

	bm.lowStockCount, err = NewGauge(
		cfg.Meter,
		"kart_low_stock_count",
		"Number of active products at or below the low stock threshold",
		"{products}",
	)
	if err != nil {
		return nil, err
	}

	bm.activeCartCount, err = NewGauge(
		cfg.Meter,
		"kart_active_cart_count",
		"Number of carts holding at least one item",
		"{carts}",
	)
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// =============================================================================
// Account Metrics
// =============================================================================

// RecordUserRegistered records a successful account registration.
func (bm *BusinessMetrics) RecordUserRegistered(ctx context.Context) {
	bm.userRegisteredTotal.Inc(ctx)
}

// =============================================================================
// Checkout Metrics
// =============================================================================

// RecordOrderPlaced records a successful checkout with the order total.
// The amount is converted to the smallest currency unit (cents).
func (bm *BusinessMetrics) RecordOrderPlaced(ctx context.Context, total decimal.Decimal) {
	bm.orderPlacedTotal.Inc(ctx)

	totalCents := total.Mul(decimal.NewFromInt(100)).IntPart()
	bm.orderRevenueTotal.Add(ctx, totalCents)
}

// RecordCheckoutFailed records a rejected checkout attempt, labeled
// with the rejection reason code.
func (bm *BusinessMetrics) RecordCheckoutFailed(ctx context.Context, reason string) {
	bm.checkoutFailedTotal.Inc(ctx, AttrFailureReason.String(reason))
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection starts periodic collection of gauge metrics.
// It collects catalog metrics every interval (default: 5 minutes).
// This is non-blocking - use Stop() to stop collection.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration, lowStockThreshold int) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		if lowStockThreshold <= 0 {
			lowStockThreshold = 5
		}

		go bm.runPeriodicCollection(ctx, interval, lowStockThreshold)
	})
}

// runPeriodicCollection runs the periodic collection loop.
func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration, lowStockThreshold int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Collect immediately on start
	bm.collectCatalogMetrics(ctx, lowStockThreshold)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.collectCatalogMetrics(ctx, lowStockThreshold)
		}
	}
}

// collectCatalogMetrics collects catalog and cart gauge metrics.
func (bm *BusinessMetrics) collectCatalogMetrics(ctx context.Context, lowStockThreshold int) {
	if bm.catalogProvider == nil {
		bm.logger.Debug("No catalog provider configured, skipping catalog metrics collection")
		return
	}

	lowStock, err := bm.catalogProvider.GetLowStockCount(ctx, lowStockThreshold)
	if err != nil {
		bm.logger.Warn("Failed to get low stock count", zap.Error(err))
	} else {
		bm.lowStockCount.Record(ctx, lowStock)
	}

	activeCarts, err := bm.catalogProvider.GetActiveCartCount(ctx)
	if err != nil {
		bm.logger.Warn("Failed to get active cart count", zap.Error(err))
	} else {
		bm.activeCartCount.Record(ctx, activeCarts)
	}
}

// Stop stops the periodic collection.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
