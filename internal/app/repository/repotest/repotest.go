// Package repotest opens a migrated in-memory SQLite repository for tests.
package repotest

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portal/internal/app/ds"
	"portal/internal/app/repository"
)

// New returns a repository over a private in-memory database. The pool is
// pinned to one connection so every query sees the same database.
func New(t testing.TB) *repository.Repository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.NewWithDB(db)
}

// Client inserts a client and returns its id.
func Client(t testing.TB, repo *repository.Repository, name string) uint {
	t.Helper()
	c := &ds.Client{Name: name, AccountManager: "am@" + name + ".test"}
	if err := repo.CreateClient(context.Background(), c); err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c.ID
}
