package ds

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"portal/internal/app/lifecycle"
)

// ClientService is one purchased entitlement of a client. Category-specific
// attributes live in Details, keyed by the schema of Category; DomainName is
// lifted to a column so its uniqueness can be enforced by an index.
type ClientService struct {
	ID            uint                   `gorm:"primaryKey"`
	ClientID      uint                   `gorm:"not null;index"`
	ServiceName   string                 `gorm:"type:varchar(150);not null"`
	Category      lifecycle.Category     `gorm:"type:varchar(20);not null;index"`
	DomainName    string                 `gorm:"type:varchar(253);index"`
	Details       datatypes.JSONMap
	MonthlyPrice  decimal.Decimal        `gorm:"type:decimal(12,2);not null"`
	BillingCycle  lifecycle.BillingCycle `gorm:"type:varchar(20);not null"`
	PaymentMethod string                 `gorm:"type:varchar(50)"`
	AutoRenew     bool                   `gorm:"type:boolean;default:false;not null"`
	StartDate     time.Time              `gorm:"type:date;not null"`
	ExpiryDate    time.Time              `gorm:"type:date;not null;index"`
	RenewalDate   time.Time              `gorm:"type:date;not null"`
	Status        lifecycle.Status       `gorm:"type:varchar(20);not null;index"`
	Notes         string                 `gorm:"type:text"`
	// Version is bumped by every write; updates are conditional on it.
	Version   uint `gorm:"not null;default:1"`
	CreatedBy uint
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ClientService) TableName() string {
	return "client_services"
}
