package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronewerx/internal/pkg/logging"
)

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u:p@localhost:5432/db"))
	assert.True(t, IsPostgres("postgresql://u:p@localhost/db"))
	assert.False(t, IsPostgres(":memory:"))
	assert.False(t, IsPostgres("studio.db"))
}

func TestConnectSQLiteUsesSingleConnection(t *testing.T) {
	db, err := Connect(":memory:", Options{MaxOpenConns: 20, Log: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	assert.Equal(t, "sqlite", db.Dialector.Name())
}

func TestProvisionIsIdempotent(t *testing.T) {
	db, err := Connect(":memory:", Options{Log: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	ctx := context.Background()
	require.NoError(t, Provision(ctx, db))

	require.NoError(t, db.Exec(
		`INSERT INTO user_profile (user_id, user_name) VALUES (?, ?)`,
		"0b6f1c3e-7a52-4c55-9d1e-111111111111", "pilot",
	).Error)

	require.NoError(t, Provision(ctx, db), "second run must not fail")

	var tables int64
	require.NoError(t, db.Raw(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('user_profile', 'file_object')`,
	).Scan(&tables).Error)
	assert.Equal(t, int64(2), tables)

	var profiles int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM user_profile`).Scan(&profiles).Error)
	assert.Equal(t, int64(1), profiles, "provisioning must not drop data")

	assert.True(t, db.Migrator().HasIndex("file_object", "idx_file_uploaded_at"))
}
