package repository

import (
	"context"
	"fmt"

	"portal/internal/app/ds"
)

func (r *Repository) RecordAudit(ctx context.Context, event *ds.AuditEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("record audit %s %s %d: %w", event.Action, event.EntityType, event.EntityID, err)
	}
	return nil
}

// AuditTrail returns the events recorded for one entity, oldest first.
func (r *Repository) AuditTrail(ctx context.Context, entityType string, entityID uint) ([]ds.AuditEvent, error) {
	var events []ds.AuditEvent
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("audit trail %s %d: %w", entityType, entityID, err)
	}
	return events, nil
}
