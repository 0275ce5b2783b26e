package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"portal/internal/app/ds"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// activeDomainIndex keeps domain names unique, case-insensitively, among
// Domain services that are neither cancelled nor deleted. The same statement
// is valid on PostgreSQL and SQLite.
const activeDomainIndex = `CREATE UNIQUE INDEX IF NOT EXISTS uniq_client_services_active_domain
ON client_services (LOWER(domain_name))
WHERE category = 'Domain' AND status NOT IN ('Cancelled', 'Deleted')`

type Repository struct {
	db *gorm.DB
}

func New(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return &Repository{db: db}, nil
}

// NewWithDB wraps an already opened connection. The schema must be migrated.
func NewWithDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates or updates every table the portal core owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&ds.User{},
		&ds.Client{},
		&ds.ClientService{},
		&ds.ServiceRenewal{},
		&ds.DnsRecord{},
		&ds.AuditEvent{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if err := db.Exec(activeDomainIndex).Error; err != nil {
		return fmt.Errorf("failed to create domain index: %w", err)
	}
	return nil
}

// Transaction runs fn against a repository bound to a single transaction.
// Repositories passed to fn must not escape it.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func clampPage(offset, limit int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}
