package db

import (
	"testing"

	"github.com/google/uuid"
	"github.com/richardliu001/school-rewards/internal/config"
	"github.com/richardliu001/school-rewards/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMigrate_CreatesEveryTable(t *testing.T) {
	gdb, err := gorm.Open(sqlite.Open("file:db_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, Migrate(gdb))
	// idempotent
	require.NoError(t, Migrate(gdb))

	for _, m := range model.All() {
		assert.True(t, gdb.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, gdb.Migrator().HasIndex(&model.WalletTransaction{}, "idx_wallet_tx_ref"))
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := Open(config.PostgresConfig{})
	assert.Error(t, err)
}
