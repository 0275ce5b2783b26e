package ds

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EntityService = "SERVICE"
	EntityRenewal = "RENEWAL"
)

// AuditEvent is one row per mutating operation.
type AuditEvent struct {
	ID         uint   `gorm:"primaryKey"`
	ActorID    uint   `gorm:"not null;index"`
	ActorLogin string `gorm:"type:varchar(50)"`
	Action     string `gorm:"type:varchar(50);not null"`
	EntityType string `gorm:"type:varchar(20);not null;index:idx_audit_entity"`
	EntityID   uint   `gorm:"not null;index:idx_audit_entity"`
	Summary    string `gorm:"type:text"`
	Details    datatypes.JSONMap
	CreatedAt  time.Time
}
