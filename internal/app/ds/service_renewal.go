package ds

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"portal/internal/app/lifecycle"
)

// ServiceRenewal is one entry of a service's renewal ledger.
type ServiceRenewal struct {
	ID                 uint                    `gorm:"primaryKey"`
	ClientServiceID    uint                    `gorm:"not null;index;<-:create"`
	Amount             decimal.Decimal         `gorm:"type:decimal(12,2);not null"`
	RenewalPeriodYears int                     `gorm:"type:int;not null"`
	RenewedAt          time.Time               `gorm:"not null;index"`
	RenewedBy          uint                    `gorm:"not null"`
	Status             lifecycle.RenewalStatus `gorm:"type:varchar(20);not null;index"`
	Notes              string                  `gorm:"type:text"`
	ExtendsExpiry      bool                    `gorm:"not null;default:false;<-:create"` // applied when the renewal completes
	PreviousExpiry     *time.Time              `gorm:"type:date"`
	NewExpiry          *time.Time              `gorm:"type:date"`
	CompletedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (ServiceRenewal) TableName() string {
	return "service_renewals"
}

// BeforeCreate defaults RenewedAt to the creation time.
func (r *ServiceRenewal) BeforeCreate(tx *gorm.DB) error {
	if r.RenewedAt.IsZero() {
		r.RenewedAt = time.Now().UTC()
	}
	return nil
}
