package database

import (
	"context"
	"testing"

	"safeguard/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestDialector(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{"sqlite url", config.Config{DatabaseURL: "sqlite://test.db"}, "sqlite"},
		{"sqlite file uri", config.Config{DatabaseURL: "file::memory:?cache=shared"}, "sqlite"},
		{"postgres url", config.Config{DatabaseURL: "postgres://u:p@localhost:5432/db"}, "postgres"},
		{"discrete settings", config.Config{DBHost: "localhost", DBPort: "5432"}, "postgres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Dialector(&tt.cfg).Name())
		})
	}
}

func TestConnect_SQLiteAppliesSchema(t *testing.T) {
	cfg := &config.Config{Env: "test", DatabaseURL: "file::memory:"}
	db, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, ApplySchema(context.Background(), db))
	for _, table := range []string{"users", "rooms", "room_participants", "messages", "attachments", "user_capabilities", "lost_and_found", "gate_pass_records"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}
