package entitlement

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"portal/internal/app/apperr"
	"portal/internal/app/lifecycle"
)

// ServiceInput carries the fields of a new service.
type ServiceInput struct {
	ClientID      uint            `json:"clientId" validate:"required"`
	ServiceName   string          `json:"serviceName" validate:"max=150"`
	Category      string          `json:"category" validate:"required,oneof=Domain Hosting Email Security Subscription Other"`
	DomainName    string          `json:"domainName" validate:"omitempty,fqdn,max=253"`
	Details       map[string]any  `json:"serviceDetails"`
	MonthlyPrice  decimal.Decimal `json:"monthlyPrice"`
	BillingCycle  string          `json:"billingCycle" validate:"required,oneof=Monthly Quarterly Semi-Annually Annually Biennially Triennially One-time"`
	PaymentMethod string          `json:"paymentMethod" validate:"max=50"`
	AutoRenew     bool            `json:"autoRenew"`
	StartDate     time.Time       `json:"startDate"`
	ExpiryDate    time.Time       `json:"expiryDate"`
	RenewalDate   *time.Time      `json:"renewalDate"`
	Status        string          `json:"status" validate:"omitempty,oneof=Pending Active"`
	Notes         string          `json:"notes" validate:"max=2000"`
}

// ServiceUpdate is a partial edit. Nil fields are left alone; a nil Details
// map keeps the stored attributes.
type ServiceUpdate struct {
	ServiceName   *string          `json:"serviceName" validate:"omitempty,max=150"`
	Category      *string          `json:"category" validate:"omitempty,oneof=Domain Hosting Email Security Subscription Other"`
	DomainName    *string          `json:"domainName" validate:"omitempty,max=253"`
	Details       map[string]any   `json:"serviceDetails"`
	MonthlyPrice  *decimal.Decimal `json:"monthlyPrice"`
	BillingCycle  *string          `json:"billingCycle" validate:"omitempty,oneof=Monthly Quarterly Semi-Annually Annually Biennially Triennially One-time"`
	PaymentMethod *string          `json:"paymentMethod" validate:"omitempty,max=50"`
	AutoRenew     *bool            `json:"autoRenew"`
	StartDate     *time.Time       `json:"startDate"`
	ExpiryDate    *time.Time       `json:"expiryDate"`
	RenewalDate   *time.Time       `json:"renewalDate"`
	Notes         *string          `json:"notes" validate:"omitempty,max=2000"`
}

// RenewalInput records one renewal. UpdateExpiry extends the service by
// PeriodYears and reactivates it.
type RenewalInput struct {
	Amount       decimal.Decimal `json:"amount"`
	PeriodYears  int             `json:"renewalPeriodYears" validate:"min=1,max=10"`
	Notes        string          `json:"notes" validate:"max=2000"`
	UpdateExpiry bool            `json:"updateExpiry"`
}

// RenewalUpdate edits a ledger entry. Notes may change at any time; every
// other field only while the renewal is Pending.
type RenewalUpdate struct {
	Amount      *decimal.Decimal `json:"amount"`
	PeriodYears *int             `json:"renewalPeriodYears" validate:"omitempty,min=1,max=10"`
	RenewedAt   *time.Time       `json:"renewedAt"`
	Notes       *string          `json:"notes" validate:"omitempty,max=2000"`
}

func (u RenewalUpdate) notesOnly() bool {
	return u.Amount == nil && u.PeriodYears == nil && u.RenewedAt == nil
}

func (u RenewalUpdate) empty() bool {
	return u.notesOnly() && u.Notes == nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation and turns the first failure into a
// ValidationError naming the offending field.
func (s *Service) check(in interface{}) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate input: %w", err)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation(fe.Field(), "is required")
	case "oneof":
		return apperr.Validation(fe.Field(), "must be one of: %s", fe.Param())
	case "fqdn":
		return apperr.Validation(fe.Field(), "is not a valid domain name")
	case "max":
		return apperr.Validation(fe.Field(), "must be at most %s", fe.Param())
	case "min":
		return apperr.Validation(fe.Field(), "must be at least %s", fe.Param())
	default:
		return apperr.Validation(fe.Field(), "failed %s check", fe.Tag())
	}
}

func normalizeDomain(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

func checkAmount(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return apperr.Validation(field, "must not be negative")
	}
	return nil
}

// checkDates enforces the ordering between the three service dates.
func checkDates(start, expiry, renewal time.Time) error {
	if start.IsZero() {
		return apperr.Validation("startDate", "is required")
	}
	if expiry.IsZero() {
		return apperr.Validation("expiryDate", "is required")
	}
	if expiry.Before(start) {
		return apperr.Validation("expiryDate", "must not be before startDate")
	}
	if renewal.After(expiry) {
		return apperr.Validation("renewalDate", "must not be after expiryDate")
	}
	return nil
}

// checkDomain requires a domain name on Domain services.
func checkDomain(category lifecycle.Category, domain string) error {
	if category == lifecycle.CategoryDomain && domain == "" {
		return apperr.Validation("domainName", "is required for Domain services")
	}
	return nil
}
