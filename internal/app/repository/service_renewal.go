package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"portal/internal/app/apperr"
	"portal/internal/app/ds"
	"portal/internal/app/lifecycle"
)

// RenewalFilter narrows ListRenewals. Zero values do not filter.
type RenewalFilter struct {
	ServiceID uint
	Status    lifecycle.RenewalStatus
	From      *time.Time
	To        *time.Time
	Offset    int
	Limit     int
}

func (r *Repository) CreateRenewal(ctx context.Context, renewal *ds.ServiceRenewal) error {
	if err := r.db.WithContext(ctx).Create(renewal).Error; err != nil {
		return fmt.Errorf("create renewal for service %d: %w", renewal.ClientServiceID, err)
	}
	return nil
}

func (r *Repository) GetRenewal(ctx context.Context, id uint) (*ds.ServiceRenewal, error) {
	var renewal ds.ServiceRenewal
	err := r.db.WithContext(ctx).First(&renewal, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("renewal", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get renewal %d: %w", id, err)
	}
	return &renewal, nil
}

// UpdateRenewal writes the mutable columns of renewal, but only while the
// stored row is still in expectStatus. Anything else is reported as
// ImmutableRecord with the stored status.
func (r *Repository) UpdateRenewal(ctx context.Context, renewal *ds.ServiceRenewal, expectStatus lifecycle.RenewalStatus) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&ds.ServiceRenewal{}).
		Where("id = ? AND status = ?", renewal.ID, expectStatus).
		Updates(map[string]interface{}{
			"amount":               renewal.Amount,
			"renewal_period_years": renewal.RenewalPeriodYears,
			"renewed_at":           renewal.RenewedAt,
			"status":               renewal.Status,
			"notes":                renewal.Notes,
			"completed_at":         renewal.CompletedAt,
			"previous_expiry":      renewal.PreviousExpiry,
			"new_expiry":           renewal.NewExpiry,
			"updated_at":           now,
		})
	if result.Error != nil {
		return fmt.Errorf("update renewal %d: %w", renewal.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		stored, err := r.GetRenewal(ctx, renewal.ID)
		if err != nil {
			return err
		}
		return apperr.ImmutableRecord("renewal", renewal.ID, string(stored.Status))
	}
	renewal.UpdatedAt = now
	return nil
}

// UpdateRenewalNotes is the one edit allowed on a closed renewal.
func (r *Repository) UpdateRenewalNotes(ctx context.Context, id uint, notes string) error {
	result := r.db.WithContext(ctx).
		Model(&ds.ServiceRenewal{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"notes": notes, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return fmt.Errorf("update renewal %d notes: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("renewal", id)
	}
	return nil
}

// DeleteRenewal physically removes a ledger entry.
func (r *Repository) DeleteRenewal(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&ds.ServiceRenewal{}, id)
	if result.Error != nil {
		return fmt.Errorf("delete renewal %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("renewal", id)
	}
	return nil
}

// RenewalsForService returns the full history of a service, newest first.
// Callers rely on this ordering.
func (r *Repository) RenewalsForService(ctx context.Context, serviceID uint) ([]ds.ServiceRenewal, error) {
	var renewals []ds.ServiceRenewal
	err := r.db.WithContext(ctx).
		Where("client_service_id = ?", serviceID).
		Order("renewed_at DESC").Order("id DESC").
		Find(&renewals).Error
	if err != nil {
		return nil, fmt.Errorf("renewals for service %d: %w", serviceID, err)
	}
	return renewals, nil
}

// ListRenewals returns one page of renewals, newest first, and the total.
func (r *Repository) ListRenewals(ctx context.Context, f RenewalFilter) ([]ds.ServiceRenewal, int64, error) {
	offset, limit := clampPage(f.Offset, f.Limit)

	q := r.db.WithContext(ctx).Model(&ds.ServiceRenewal{})
	if f.ServiceID != 0 {
		q = q.Where("client_service_id = ?", f.ServiceID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != nil {
		q = q.Where("renewed_at >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("renewed_at <= ?", *f.To)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count renewals: %w", err)
	}

	var renewals []ds.ServiceRenewal
	err := q.Order("renewed_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&renewals).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list renewals: %w", err)
	}
	return renewals, total, nil
}
