package entitlement

import (
	"time"

	"github.com/shopspring/decimal"

	"portal/internal/app/ds"
	"portal/internal/app/lifecycle"
)

// ServiceSummary is a service as listings show it. Status is the effective
// status; StoredStatus is what the row says.
type ServiceSummary struct {
	ID              uint
	ClientID        uint
	ClientName      string
	ServiceName     string
	Category        lifecycle.Category
	DomainName      string
	Status          lifecycle.Status
	StoredStatus    lifecycle.Status
	MonthlyPrice    decimal.Decimal
	BillingCycle    lifecycle.BillingCycle
	AutoRenew       bool
	StartDate       time.Time
	ExpiryDate      time.Time
	RenewalDate     time.Time
	DaysUntilExpiry int
	Urgency         lifecycle.Urgency
	Version         uint
}

// ServiceDetail adds the full record, its ledger newest first, and the DNS
// records created with it.
type ServiceDetail struct {
	ServiceSummary
	Details       map[string]interface{}
	PaymentMethod string
	Notes         string
	CreatedBy     uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Renewals      []ds.ServiceRenewal
	DNSRecords    []ds.DnsRecord
}

func summarize(svc ds.ClientService, clientName string, today time.Time) ServiceSummary {
	days := lifecycle.DaysUntilExpiry(svc.ExpiryDate, today)
	return ServiceSummary{
		ID:              svc.ID,
		ClientID:        svc.ClientID,
		ClientName:      clientName,
		ServiceName:     svc.ServiceName,
		Category:        svc.Category,
		DomainName:      svc.DomainName,
		Status:          lifecycle.EffectiveStatus(svc.Status, svc.ExpiryDate, today),
		StoredStatus:    svc.Status,
		MonthlyPrice:    svc.MonthlyPrice,
		BillingCycle:    svc.BillingCycle,
		AutoRenew:       svc.AutoRenew,
		StartDate:       lifecycle.Date(svc.StartDate),
		ExpiryDate:      lifecycle.Date(svc.ExpiryDate),
		RenewalDate:     lifecycle.Date(svc.RenewalDate),
		DaysUntilExpiry: days,
		Urgency:         lifecycle.ClassifyUrgency(days),
		Version:         svc.Version,
	}
}
