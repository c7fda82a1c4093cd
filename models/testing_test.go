package models

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(AllModels()...))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *User {
	t.Helper()
	user := &User{Username: username, Email: username + "@example.com", IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, name, price string, active bool) *Product {
	t.Helper()
	product := &Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		IsActive: active,
	}
	require.NoError(t, NewProductsRepository(db).Create(context.Background(), product))
	return product
}
