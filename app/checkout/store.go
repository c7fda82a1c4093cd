package checkout

import (
	"context"

	"github.com/simplestore/storefront/models"
)

// GormStore runs checkouts against the relational store.
type GormStore struct {
	store *models.Store
}

func NewGormStore(s *models.Store) *GormStore {
	return &GormStore{store: s}
}

func (g *GormStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return g.store.Transaction(ctx, func(tx *models.Store) error {
		return fn(gormTx{store: tx})
	})
}

type gormTx struct {
	store *models.Store
}

func (t gormTx) FindActiveProducts(ctx context.Context, ids []uint) ([]models.Product, error) {
	return t.store.Products.FindActiveByIDs(ctx, ids)
}

func (t gormTx) CreateOrder(ctx context.Context, order *models.Order) error {
	return t.store.Orders.Create(ctx, order)
}

func (t gormTx) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return t.store.Orders.CreateItem(ctx, item)
}

func (t gormTx) DeleteOrder(ctx context.Context, id uint) error {
	return t.store.Orders.Delete(ctx, id)
}

var _ Store = (*GormStore)(nil)
