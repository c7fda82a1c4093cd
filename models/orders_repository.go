package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrOrderNotFound is returned for missing orders and for orders owned by
// someone else.
var ErrOrderNotFound = errors.New("order not found")

type OrdersRepository struct {
	db *gorm.DB
}

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{db: db}
}

// Create inserts the order header only; items are written with CreateItem.
func (r *OrdersRepository) Create(ctx context.Context, order *Order) error {
	if order.Status == "" {
		order.Status = OrderStatusPending
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *OrdersRepository) CreateItem(ctx context.Context, item *OrderItem) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error
}

// Delete removes the order together with its items.
func (r *OrdersRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Order{}, id).Error
	})
}

// GetForUser loads an order with its items and their products. Orders that
// belong to another user are reported as ErrOrderNotFound.
func (r *OrdersRepository) GetForUser(ctx context.Context, id, userID uint) (*Order, error) {
	var order Order
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_items.id ASC")
		}).
		Preload("Items.Product").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrdersRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&Order{}).Count(&total).Error
	return total, err
}
