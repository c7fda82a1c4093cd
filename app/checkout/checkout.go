package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/simplestore/storefront/app/cart"
	"github.com/simplestore/storefront/models"
)

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrNoValidItems = errors.New("no valid items to checkout")
)

// Form holds the shipping details captured on the order.
type Form struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Address  string `json:"address" validate:"required"`
}

// Tx is the set of writes a checkout performs inside one transaction.
type Tx interface {
	FindActiveProducts(ctx context.Context, ids []uint) ([]models.Product, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItem(ctx context.Context, item *models.OrderItem) error
	DeleteOrder(ctx context.Context, id uint) error
}

type Store interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

type Service struct {
	store Store
}

func NewService(s Store) *Service {
	return &Service{store: s}
}

// PlaceOrder turns the cart into a pending order for userID. Entries whose
// product is no longer active are skipped; if none remain the order is
// removed again and ErrNoValidItems is returned. Nothing is written when an
// error is returned.
func (s *Service) PlaceOrder(ctx context.Context, userID uint, items cart.Items, form Form) (*models.Order, error) {
	if items.Count() == 0 {
		return nil, ErrEmptyCart
	}

	var order *models.Order
	err := s.store.Transaction(ctx, func(tx Tx) error {
		products, err := tx.FindActiveProducts(ctx, items.IDs())
		if err != nil {
			return fmt.Errorf("load cart products: %w", err)
		}

		order = &models.Order{
			UserID:   userID,
			Status:   models.OrderStatusPending,
			FullName: form.FullName,
			Email:    form.Email,
			Address:  form.Address,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		lines, _ := cart.Resolve(items, products)
		for _, line := range lines {
			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.Product.ID,
				Product:   line.Product,
				Quantity:  line.Quantity,
				UnitPrice: line.Product.Price,
			}
			if err := tx.CreateItem(ctx, &item); err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			order.Items = append(order.Items, item)
		}

		if len(order.Items) == 0 {
			if err := tx.DeleteOrder(ctx, order.ID); err != nil {
				return fmt.Errorf("delete empty order: %w", err)
			}
			return ErrNoValidItems
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}
