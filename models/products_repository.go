package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type ProductsRepository struct {
	db *gorm.DB
}

var (
	// ErrProductNotFound is returned when a product is missing or inactive.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductInUse is returned when deleting a product referenced by order items.
	ErrProductInUse = errors.New("product is referenced by order items")
)

func NewProductsRepository(db *gorm.DB) *ProductsRepository {
	return &ProductsRepository{
		db: db,
	}
}

// ListActive returns every active product ordered by name.
func (r *ProductsRepository) ListActive(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetActiveByID returns ErrProductNotFound for inactive products as well as
// missing ones.
func (r *ProductsRepository) GetActiveByID(ctx context.Context, id uint) (*Product, error) {
	var product Product
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err // Other DB error
	}
	return &product, nil
}

func (r *ProductsRepository) FindActiveByIDs(ctx context.Context, ids []uint) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var products []Product
	if err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *ProductsRepository) Create(ctx context.Context, product *Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// GetOrCreateByName looks a product up by exact name and creates it from the
// given defaults when absent. The boolean reports whether a row was inserted.
func (r *ProductsRepository) GetOrCreateByName(ctx context.Context, product *Product) (bool, error) {
	var existing Product
	err := r.db.WithContext(ctx).Where("name = ?", product.Name).First(&existing).Error
	if err == nil {
		*product = existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	if err := r.Create(ctx, product); err != nil {
		return false, err
	}
	return true, nil
}

// Update writes the editable columns of an existing product, zero values included.
func (r *ProductsRepository) Update(ctx context.Context, product *Product) error {
	res := r.db.WithContext(ctx).
		Model(product).
		Select("name", "slug", "description", "price", "image_url", "is_active").
		Updates(product)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Deactivate hides a product from the storefront without deleting it.
func (r *ProductsRepository) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&Product{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Delete removes a product that no order item references.
func (r *ProductsRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var refs int64
		if err := tx.Model(&OrderItem{}).Where("product_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrProductInUse
		}
		res := tx.Delete(&Product{}, id)
		if res.Error != nil {
			if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
				return ErrProductInUse
			}
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrProductNotFound
		}
		return nil
	})
}
