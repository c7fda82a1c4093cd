package models

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one database handle so that
// they can be used together inside a transaction.
type Store struct {
	db       *gorm.DB
	Products *ProductsRepository
	Orders   *OrdersRepository
	Users    *UsersRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Products: NewProductsRepository(db),
		Orders:   NewOrdersRepository(db),
		Users:    NewUsersRepository(db),
	}
}

// Transaction runs fn with a Store bound to a single database transaction.
// Returning an error from fn rolls every write back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// AllModels lists the models in dependency order for schema bootstrapping.
func AllModels() []any {
	return []any{&User{}, &Product{}, &Order{}, &OrderItem{}}
}
