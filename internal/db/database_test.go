package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/staffhub/internal/models"
)

func TestOpen_Validation(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), Options{Driver: DriverSQLite})
	assert.Error(t, err)

	_, err = Open(context.Background(), Options{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestOpenTest_Migrates(t *testing.T) {
	t.Parallel()

	gdb := OpenTest(t)
	assert.True(t, gdb.Migrator().HasTable(&models.Identity{}))
	assert.True(t, gdb.Migrator().HasColumn(&models.Identity{}, "refresh_token_hash"))
	assert.True(t, gdb.Migrator().HasColumn(&models.Identity{}, "refresh_token_expires_at"))
}

func TestClose(t *testing.T) {
	t.Parallel()

	require.NoError(t, Close(nil))
	gdb, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, Close(gdb))
}

func TestPing(t *testing.T) {
	t.Parallel()

	gdb, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, Ping(context.Background(), gdb))

	require.NoError(t, Close(gdb))
	assert.Error(t, Ping(context.Background(), gdb))
}
