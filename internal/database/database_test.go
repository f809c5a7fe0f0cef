package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksred/ventil-api/internal/types"
)

func TestNewDatabaseCreatesSchema(t *testing.T) {
	db, err := NewDatabase(":memory:")
	require.NoError(t, err)

	for _, model := range []interface{}{&types.Owner{}, &types.Item{}, &types.Possession{}, &types.TradeExecution{}} {
		assert.True(t, db.Migrator().HasTable(model))
	}
	for _, idx := range []string{"idx_possessions_owner_id", "idx_possessions_item_id"} {
		assert.True(t, db.Migrator().HasIndex(&types.Possession{}, idx), idx)
	}
	assert.True(t, db.Migrator().HasIndex(&types.TradeExecution{}, "idx_trade_executions_trader_1"))
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ventil.db")

	db, err := NewDatabase(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	reopened, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, Migrate(reopened))
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := NewDatabase(":memory:")
	require.NoError(t, err)

	err = db.Omit("Owner", "Item").Create(&types.Possession{OwnerID: 1, ItemID: 1}).Error
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?_foreign_keys=on", dsn(":memory:"))
	assert.Equal(t, "file:/tmp/v.db?_foreign_keys=on", dsn("/tmp/v.db"))
}
