package models

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockProductsRepository creates a ProductsRepository over a mocked postgres connection.
func newMockProductsRepository(t *testing.T) (*ProductsRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewProductsRepository(gormDB), mock, mockDB
}

func TestProductsRepository_ListActive_Query(t *testing.T) {
	repo, mock, mockDB := newMockProductsRepository(t)
	defer mockDB.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "slug", "description", "price", "image_url", "is_active", "created_at"}).
		AddRow(2, "Coffee Mug", "coffee-mug", "", "12.50", "", true, time.Now()).
		AddRow(1, "Running Shoes", "running-shoes", "", "79.00", "", true, time.Now())

	mock.ExpectQuery(`SELECT \* FROM "products" WHERE is_active = \$1 ORDER BY name ASC`).
		WithArgs(true).
		WillReturnRows(rows)

	products, err := repo.ListActive(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Coffee Mug", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("12.50")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductsRepository_GetActiveByID_Query(t *testing.T) {
	t.Run("maps record not found", func(t *testing.T) {
		repo, mock, mockDB := newMockProductsRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE .*id = \$1 AND is_active = \$2.* LIMIT .*`).
			WithArgs(7, true, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		product, err := repo.GetActiveByID(context.Background(), 7)

		assert.Nil(t, product)
		assert.Equal(t, ErrProductNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("passes other errors through", func(t *testing.T) {
		repo, mock, mockDB := newMockProductsRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "products"`).
			WillReturnError(errors.New("connection reset"))

		product, err := repo.GetActiveByID(context.Background(), 7)

		assert.Nil(t, product)
		assert.EqualError(t, err, "connection reset")
	})
}

func TestProductsRepository_Catalog(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductsRepository(db)
	ctx := context.Background()

	shoes := createTestProduct(t, db, "Running Shoes", "79.00", true)
	mug := createTestProduct(t, db, "Coffee Mug", "12.50", true)
	hidden := createTestProduct(t, db, "Archived Hat", "5.00", false)

	t.Run("lists active products by name", func(t *testing.T) {
		products, err := repo.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, products, 2)
		assert.Equal(t, mug.ID, products[0].ID)
		assert.Equal(t, shoes.ID, products[1].ID)
	})

	t.Run("detail hides inactive products", func(t *testing.T) {
		_, err := repo.GetActiveByID(ctx, hidden.ID)
		assert.ErrorIs(t, err, ErrProductNotFound)

		_, err = repo.GetActiveByID(ctx, 9999)
		assert.ErrorIs(t, err, ErrProductNotFound)

		found, err := repo.GetActiveByID(ctx, shoes.ID)
		require.NoError(t, err)
		assert.Equal(t, "running-shoes", found.Slug)
	})

	t.Run("find by ids skips inactive", func(t *testing.T) {
		products, err := repo.FindActiveByIDs(ctx, []uint{shoes.ID, hidden.ID, 4242})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, shoes.ID, products[0].ID)

		products, err = repo.FindActiveByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, products)
	})
}

func TestProduct_SlugIsUnique(t *testing.T) {
	db := setupTestDB(t)

	first := createTestProduct(t, db, "Coffee Mug", "12.50", true)
	second := createTestProduct(t, db, "Coffee Mug", "14.00", true)
	symbols := createTestProduct(t, db, "???", "1.00", true)

	assert.Equal(t, "coffee-mug", first.Slug)
	assert.Equal(t, "coffee-mug-2", second.Slug)
	assert.Equal(t, "product", symbols.Slug)

	explicit := &Product{Name: "Mug", Slug: "custom", Price: decimal.NewFromInt(1), IsActive: true}
	require.NoError(t, db.Create(explicit).Error)
	assert.Equal(t, "custom", explicit.Slug)
}

func TestProductsRepository_GetOrCreateByName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductsRepository(db)
	ctx := context.Background()

	p := &Product{Name: "Coffee Mug", Price: decimal.RequireFromString("12.50"), IsActive: true}
	created, err := repo.GetOrCreateByName(ctx, p)
	require.NoError(t, err)
	assert.True(t, created)

	again := &Product{Name: "Coffee Mug", Price: decimal.RequireFromString("99.00"), IsActive: true}
	created, err = repo.GetOrCreateByName(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p.ID, again.ID)
	assert.True(t, again.Price.Equal(decimal.RequireFromString("12.50")))
}

func TestProductsRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductsRepository(db)
	ctx := context.Background()

	p := createTestProduct(t, db, "Coffee Mug", "12.50", false)
	p.Price = decimal.RequireFromString("14.00")
	p.IsActive = true
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetActiveByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("14.00")))
	assert.Equal(t, "coffee-mug", got.Slug)

	missing := &Product{ID: 9999, Name: "Ghost", Slug: "ghost", Price: decimal.NewFromInt(1)}
	assert.ErrorIs(t, repo.Update(ctx, missing), ErrProductNotFound)
}

func TestProductsRepository_DeactivateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProductsRepository(db)
	ctx := context.Background()

	user := createTestUser(t, db, "alice")
	referenced := createTestProduct(t, db, "Running Shoes", "79.00", true)
	loose := createTestProduct(t, db, "Coffee Mug", "12.50", true)

	order := &Order{UserID: user.ID, FullName: "Alice", Email: "alice@example.com", Address: "1 Main St"}
	require.NoError(t, NewOrdersRepository(db).Create(ctx, order))
	require.NoError(t, NewOrdersRepository(db).CreateItem(ctx, &OrderItem{
		OrderID: order.ID, ProductID: referenced.ID, Quantity: 1, UnitPrice: referenced.Price,
	}))

	assert.ErrorIs(t, repo.Delete(ctx, referenced.ID), ErrProductInUse)
	assert.NoError(t, repo.Delete(ctx, loose.ID))
	assert.ErrorIs(t, repo.Delete(ctx, loose.ID), ErrProductNotFound)

	require.NoError(t, repo.Deactivate(ctx, referenced.ID))
	_, err := repo.GetActiveByID(ctx, referenced.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, repo.Deactivate(ctx, 9999), ErrProductNotFound)
}
