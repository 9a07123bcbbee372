// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"

	"gorm.io/gorm"
)

// GormCatalogMetricsProvider implements CatalogMetricsProvider using GORM.
// It queries the products and cart_items tables directly for aggregates.
type GormCatalogMetricsProvider struct {
	db *gorm.DB
}

// NewGormCatalogMetricsProvider creates a new GormCatalogMetricsProvider.
func NewGormCatalogMetricsProvider(db *gorm.DB) *GormCatalogMetricsProvider {
	return &GormCatalogMetricsProvider{db: db}
}

// GetLowStockCount returns the number of active products at or below the stock threshold.
func (p *GormCatalogMetricsProvider) GetLowStockCount(ctx context.Context, threshold int) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("products").
		Where("is_active = ? AND stock <= ?", true, threshold).
		Count(&count).Error

	return count, err
}

// GetActiveCartCount returns the number of carts holding at least one item.
func (p *GormCatalogMetricsProvider) GetActiveCartCount(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("cart_items").
		Distinct("cart_id").
		Count(&count).Error

	return count, err
}

// Ensure GormCatalogMetricsProvider implements CatalogMetricsProvider
var _ CatalogMetricsProvider = (*GormCatalogMetricsProvider)(nil)
