package repository

import (
	"context"
	"fmt"
	"strings"

	"portal/internal/app/ds"
)

func (r *Repository) CreateDNSRecords(ctx context.Context, records []ds.DnsRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("create dns records: %w", err)
	}
	return nil
}

// HasDNSRecords reports whether any record exists for domain.
func (r *Repository) HasDNSRecords(ctx context.Context, domain string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ds.DnsRecord{}).
		Where("LOWER(domain_name) = ?", strings.ToLower(domain)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count dns records for %q: %w", domain, err)
	}
	return count > 0, nil
}

func (r *Repository) DNSRecordsForService(ctx context.Context, serviceID uint) ([]ds.DnsRecord, error) {
	var records []ds.DnsRecord
	err := r.db.WithContext(ctx).Where("client_service_id = ?", serviceID).Order("id ASC").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("dns records for service %d: %w", serviceID, err)
	}
	return records, nil
}
