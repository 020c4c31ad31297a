package db

import (
	"context"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTest returns a migrated in-memory sqlite database closed at test cleanup.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := Open(context.Background(), Options{
		Driver:      DriverSQLite,
		DSN:         ":memory:",
		AutoMigrate: true,
		LogLevel:    logger.Silent,
	})
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	t.Cleanup(func() { _ = Close(gdb) })
	return gdb
}
