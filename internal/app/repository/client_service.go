package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"portal/internal/app/apperr"
	"portal/internal/app/ds"
	"portal/internal/app/lifecycle"
)

// Expiry buckets accepted by ServiceFilter.Expiry.
const (
	ExpiryExpiring = "expiring"
	ExpiryExpired  = "expired"
	ExpiryRenewed  = "renewed"
)

// ServiceFilter narrows ListServices. Today anchors every date predicate and
// must be set by the caller.
type ServiceFilter struct {
	Status       lifecycle.Status
	Category     lifecycle.Category
	ClientID     uint
	Expiry       string
	WindowDays   int
	RenewedSince time.Time
	AutoRenew    *bool
	Search       string
	Today        time.Time
	Offset       int
	Limit        int
}

var liveStatuses = []lifecycle.Status{lifecycle.StatusActive, lifecycle.StatusSuspended}

func (r *Repository) CreateService(ctx context.Context, svc *ds.ClientService) error {
	if svc.Version == 0 {
		svc.Version = 1
	}
	err := r.db.WithContext(ctx).Create(svc).Error
	if isUniqueViolation(err) {
		return &apperr.UniquenessError{Field: "domainName", Value: svc.DomainName}
	}
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	return nil
}

// GetService returns a service that is not soft-deleted.
func (r *Repository) GetService(ctx context.Context, id uint) (*ds.ClientService, error) {
	var svc ds.ClientService
	err := r.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, lifecycle.StatusDeleted).
		First(&svc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("service", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get service %d: %w", id, err)
	}
	return &svc, nil
}

// UpdateService writes every mutable column of svc, provided the stored
// version still equals svc.Version. On success svc.Version is advanced.
// A lost race yields ConcurrentModification; a missing row NotFound.
func (r *Repository) UpdateService(ctx context.Context, svc *ds.ClientService) error {
	prev := svc.Version
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&ds.ClientService{}).
		Where("id = ? AND version = ?", svc.ID, prev).
		Updates(map[string]interface{}{
			"service_name":   svc.ServiceName,
			"category":       svc.Category,
			"domain_name":    svc.DomainName,
			"details":        svc.Details,
			"monthly_price":  svc.MonthlyPrice,
			"billing_cycle":  svc.BillingCycle,
			"payment_method": svc.PaymentMethod,
			"auto_renew":     svc.AutoRenew,
			"start_date":     svc.StartDate,
			"expiry_date":    svc.ExpiryDate,
			"renewal_date":   svc.RenewalDate,
			"status":         svc.Status,
			"notes":          svc.Notes,
			"version":        prev + 1,
			"updated_at":     now,
		})

	if isUniqueViolation(result.Error) {
		return &apperr.UniquenessError{Field: "domainName", Value: svc.DomainName}
	}
	if result.Error != nil {
		return fmt.Errorf("update service %d: %w", svc.ID, result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&ds.ClientService{}).Where("id = ?", svc.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("update service %d: %w", svc.ID, err)
		}
		if count == 0 {
			return apperr.NotFound("service", svc.ID)
		}
		return apperr.ConcurrentModification("service", svc.ID)
	}

	svc.Version = prev + 1
	svc.UpdatedAt = now
	return nil
}

// FindActiveDomain returns the non-cancelled, non-deleted Domain service
// holding name (case-insensitive), ignoring excludeID. nil when none.
func (r *Repository) FindActiveDomain(ctx context.Context, name string, excludeID uint) (*ds.ClientService, error) {
	var svc ds.ClientService
	q := r.db.WithContext(ctx).
		Where("category = ? AND LOWER(domain_name) = ?", lifecycle.CategoryDomain, strings.ToLower(strings.TrimSpace(name))).
		Where("status NOT IN ?", []lifecycle.Status{lifecycle.StatusCancelled, lifecycle.StatusDeleted})
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.First(&svc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find domain %q: %w", name, err)
	}
	return &svc, nil
}

// ListServices returns one page of services matching f plus the total count.
// Status and expiry predicates follow the derived classification, so stale
// Active rows past their expiry date count as Expired.
func (r *Repository) ListServices(ctx context.Context, f ServiceFilter) ([]ds.ClientService, int64, error) {
	offset, limit := clampPage(f.Offset, f.Limit)
	today := lifecycle.Date(f.Today)

	q := r.db.WithContext(ctx).Model(&ds.ClientService{}).
		Where("client_services.status <> ?", lifecycle.StatusDeleted)

	switch f.Status {
	case "":
	case lifecycle.StatusExpired:
		q = q.Where(expiredClause(r.db, today))
	case lifecycle.StatusActive, lifecycle.StatusSuspended:
		q = q.Where("client_services.status = ? AND client_services.expiry_date >= ?", f.Status, today)
	default:
		q = q.Where("client_services.status = ?", f.Status)
	}

	if f.Category != "" {
		q = q.Where("client_services.category = ?", f.Category)
	}
	if f.ClientID != 0 {
		q = q.Where("client_services.client_id = ?", f.ClientID)
	}
	if f.AutoRenew != nil {
		q = q.Where("client_services.auto_renew = ?", *f.AutoRenew)
	}

	switch f.Expiry {
	case "":
	case ExpiryExpiring:
		q = q.Where("client_services.status IN ? AND client_services.expiry_date >= ? AND client_services.expiry_date <= ?",
			liveStatuses, today, today.AddDate(0, 0, f.WindowDays))
	case ExpiryExpired:
		q = q.Where(expiredClause(r.db, today))
	case ExpiryRenewed:
		q = q.Where(`EXISTS (SELECT 1 FROM service_renewals sr
			WHERE sr.client_service_id = client_services.id AND sr.status = ? AND sr.renewed_at >= ?)`,
			lifecycle.RenewalCompleted, f.RenewedSince)
	default:
		return nil, 0, apperr.Validation("expiry", "unknown expiry filter %q", f.Expiry)
	}

	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := likePattern(s)
		q = q.Where(`(LOWER(client_services.service_name) LIKE ? OR LOWER(client_services.domain_name) LIKE ?
			OR client_services.client_id IN (SELECT id FROM clients WHERE LOWER(name) LIKE ?))`,
			pattern, pattern, pattern)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count services: %w", err)
	}

	var services []ds.ClientService
	err := q.Order("client_services.expiry_date ASC").Order("client_services.id ASC").
		Offset(offset).Limit(limit).
		Find(&services).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}
	return services, total, nil
}

func expiredClause(db *gorm.DB, today time.Time) *gorm.DB {
	return db.Where("client_services.status = ?", lifecycle.StatusExpired).
		Or("client_services.status IN ? AND client_services.expiry_date < ?", liveStatuses, today)
}

// SelectExpiring returns Active or Suspended services expiring within
// windowDays of today, already expired ones included.
func (r *Repository) SelectExpiring(ctx context.Context, today time.Time, windowDays int) ([]ds.ClientService, error) {
	var services []ds.ClientService
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expiry_date <= ?", liveStatuses, lifecycle.Date(today).AddDate(0, 0, windowDays)).
		Order("expiry_date ASC").Order("id ASC").
		Find(&services).Error
	if err != nil {
		return nil, fmt.Errorf("select expiring services: %w", err)
	}
	return services, nil
}

// ServicesExpiringOn returns Active or Suspended services whose expiry date
// is one of dates.
func (r *Repository) ServicesExpiringOn(ctx context.Context, dates []time.Time) ([]ds.ClientService, error) {
	if len(dates) == 0 {
		return nil, nil
	}
	days := make([]time.Time, len(dates))
	for i, d := range dates {
		days[i] = lifecycle.Date(d)
	}
	var services []ds.ClientService
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expiry_date IN ?", liveStatuses, days).
		Order("expiry_date ASC").Order("id ASC").
		Find(&services).Error
	if err != nil {
		return nil, fmt.Errorf("services expiring on schedule: %w", err)
	}
	return services, nil
}

// StaleExpired returns services whose stored status still says Active or
// Suspended although their expiry date is before today.
func (r *Repository) StaleExpired(ctx context.Context, today time.Time) ([]ds.ClientService, error) {
	var services []ds.ClientService
	err := r.db.WithContext(ctx).
		Where("status IN ? AND expiry_date < ?", liveStatuses, lifecycle.Date(today)).
		Order("id ASC").
		Find(&services).Error
	if err != nil {
		return nil, fmt.Errorf("stale expired services: %w", err)
	}
	return services, nil
}
