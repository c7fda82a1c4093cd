package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/simplestore/storefront/app/config"
	"github.com/simplestore/storefront/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sqliteConfig(path string) *config.DatabaseConfig {
	return &config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            path,
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 60,
	}
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(sqliteConfig(filepath.Join(t.TempDir(), "shop.db")), zap.NewNop(), "silent")
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Migrate(db))
	assert.NoError(t, Ping(context.Background(), db))

	for _, m := range models.AllModels() {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestOpen_EnforcesForeignKeys(t *testing.T) {
	db, err := Open(sqliteConfig(filepath.Join(t.TempDir(), "shop.db")), zap.NewNop(), "silent")
	require.NoError(t, err)
	defer Close(db)
	require.NoError(t, Migrate(db))

	item := &models.OrderItem{OrderID: 404, ProductID: 404, Quantity: 1, UnitPrice: decimal.NewFromInt(1)}
	assert.Error(t, db.Omit("Product").Create(item).Error)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"}, zap.NewNop(), "silent")
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestWithForeignKeys(t *testing.T) {
	assert.Equal(t, "shop.db?_foreign_keys=on", withForeignKeys("shop.db"))
	assert.Equal(t, "file::memory:?cache=shared&_foreign_keys=on", withForeignKeys("file::memory:?cache=shared"))
	assert.Equal(t, "shop.db?_fk=1", withForeignKeys("shop.db?_fk=1"))
}
