package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/onlinekart/backend/internal/domain/cart"
	"github.com/onlinekart/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormCartRepository implements CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByUserID finds the user's cart with its items
func (r *GormCartRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	var c cart.Cart
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&c, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Save creates or updates a cart together with its items. Items that
// were removed from the aggregate are deleted from the items table.
func (r *GormCartRepository) Save(ctx context.Context, c *cart.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(c).Error; err != nil {
			return err
		}

		keep := make([]uuid.UUID, 0, len(c.Items))
		for i := range c.Items {
			keep = append(keep, c.Items[i].ID)
		}

		del := tx.Where("cart_id = ?", c.ID)
		if len(keep) > 0 {
			del = del.Where("id NOT IN ?", keep)
		}
		if err := del.Delete(&cart.CartItem{}).Error; err != nil {
			return err
		}

		for i := range c.Items {
			if err := tx.Save(&c.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteItems removes all items of a cart
func (r *GormCartRepository) DeleteItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&cart.CartItem{}).Error
}

// Ensure GormCartRepository implements CartRepository
var _ cart.CartRepository = (*GormCartRepository)(nil)
