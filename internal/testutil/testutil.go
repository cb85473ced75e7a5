package testutil

import (
	"path/filepath"
	"testing"

	"meal-planner/internal/config"
	"meal-planner/internal/database"
	"meal-planner/internal/logger"

	"gorm.io/gorm"
)

// DB opens a migrated sqlite database in a per-test temp dir.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := database.Init(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(tb.TempDir(), "test.db"),
	})
	if err != nil {
		tb.Fatalf("failed to init test db: %v", err)
	}
	tb.Cleanup(func() { _ = database.Close(db) })

	if err := database.AutoMigrate(db); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	return db
}

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

// Config returns defaults with a test secret and a temp backup dir.
func Config(tb testing.TB) *config.Config {
	tb.Helper()
	cfg := config.Defaults()
	cfg.JWT.Secret = "test-secret"
	cfg.Security.BcryptCost = 4
	cfg.Backup.Dir = filepath.Join(tb.TempDir(), "backups")
	cfg.Server.Mode = "test"
	return cfg
}
