package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ============ Common ============

type ErrorResponse struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message"`
	Reason  string                 `json:"reason,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items  interface{} `json:"items"`
	Total  int64       `json:"total"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
}

// Date is a calendar day in ISO form, "2006-01-02".
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(time.DateOnly))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("date must look like 2006-01-02: %w", err)
	}
	d.Time = t
	return nil
}

// ============ Services ============

type CreateServiceRequest struct {
	ClientID       uint                   `json:"clientId" binding:"required"`
	ServiceName    string                 `json:"serviceName"`
	Category       string                 `json:"category" binding:"required"`
	DomainName     string                 `json:"domainName"`
	ServiceDetails map[string]interface{} `json:"serviceDetails"`
	MonthlyPrice   decimal.Decimal        `json:"monthlyPrice" swaggertype:"string"`
	BillingCycle   string                 `json:"billingCycle" binding:"required"`
	PaymentMethod  string                 `json:"paymentMethod"`
	AutoRenew      bool                   `json:"autoRenew"`
	StartDate      Date                   `json:"startDate" swaggertype:"string" example:"2026-01-01"`
	ExpiryDate     Date                   `json:"expiryDate" swaggertype:"string" example:"2027-01-01"`
	RenewalDate    *Date                  `json:"renewalDate" swaggertype:"string"`
	Status         string                 `json:"status"`
	Notes          string                 `json:"notes"`
}

type UpdateServiceRequest struct {
	ServiceName    *string                `json:"serviceName"`
	Category       *string                `json:"category"`
	DomainName     *string                `json:"domainName"`
	ServiceDetails map[string]interface{} `json:"serviceDetails"`
	MonthlyPrice   *decimal.Decimal       `json:"monthlyPrice" swaggertype:"string"`
	BillingCycle   *string                `json:"billingCycle"`
	PaymentMethod  *string                `json:"paymentMethod"`
	AutoRenew      *bool                  `json:"autoRenew"`
	StartDate      *Date                  `json:"startDate" swaggertype:"string"`
	ExpiryDate     *Date                  `json:"expiryDate" swaggertype:"string"`
	RenewalDate    *Date                  `json:"renewalDate" swaggertype:"string"`
	Notes          *string                `json:"notes"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ServiceResponse struct {
	ID              uint            `json:"id"`
	ClientID        uint            `json:"clientId"`
	ClientName      string          `json:"clientName"`
	ServiceName     string          `json:"serviceName"`
	Category        string          `json:"category"`
	DomainName      string          `json:"domainName,omitempty"`
	Status          string          `json:"status"`
	StoredStatus    string          `json:"storedStatus"`
	MonthlyPrice    decimal.Decimal `json:"monthlyPrice" swaggertype:"string"`
	BillingCycle    string          `json:"billingCycle"`
	AutoRenew       bool            `json:"autoRenew"`
	StartDate       Date            `json:"startDate" swaggertype:"string"`
	ExpiryDate      Date            `json:"expiryDate" swaggertype:"string"`
	RenewalDate     Date            `json:"renewalDate" swaggertype:"string"`
	DaysUntilExpiry int             `json:"daysUntilExpiry"`
	Urgency         string          `json:"urgency"`
	Version         uint            `json:"version"`
}

type ServiceDetailResponse struct {
	ServiceResponse
	ServiceDetails map[string]interface{} `json:"serviceDetails"`
	PaymentMethod  string                 `json:"paymentMethod"`
	Notes          string                 `json:"notes"`
	CreatedBy      uint                   `json:"createdBy"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
	Renewals       []RenewalResponse      `json:"renewals"`
	DNSRecords     []DNSRecordResponse    `json:"dnsRecords"`
}

type DNSRecordResponse struct {
	ID       uint   `json:"id"`
	Type     string `json:"type"`
	Host     string `json:"host"`
	Value    string `json:"value"`
	Priority *int   `json:"priority,omitempty"`
	TTL      int    `json:"ttl"`
}

// ============ Renewals ============

type RenewRequest struct {
	Amount             decimal.Decimal `json:"amount" swaggertype:"string"`
	RenewalPeriodYears int             `json:"renewalPeriodYears" binding:"required"`
	Notes              string          `json:"notes"`
	UpdateExpiry       *bool           `json:"updateExpiry"`
}

type EditRenewalRequest struct {
	Amount             *decimal.Decimal `json:"amount" swaggertype:"string"`
	RenewalPeriodYears *int             `json:"renewalPeriodYears"`
	RenewedAt          *time.Time       `json:"renewedAt"`
	Notes              *string          `json:"notes"`
}

type RenewalResponse struct {
	ID                 uint            `json:"id"`
	ServiceID          uint            `json:"serviceId"`
	Amount             decimal.Decimal `json:"amount" swaggertype:"string"`
	RenewalPeriodYears int             `json:"renewalPeriodYears"`
	RenewedAt          time.Time       `json:"renewedAt"`
	RenewedBy          uint            `json:"renewedBy"`
	Status             string          `json:"status"`
	Notes              string          `json:"notes"`
	ExtendsExpiry      bool            `json:"extendsExpiry"`
	PreviousExpiry     *Date           `json:"previousExpiry,omitempty" swaggertype:"string"`
	NewExpiry          *Date           `json:"newExpiry,omitempty" swaggertype:"string"`
	CompletedAt        *time.Time      `json:"completedAt,omitempty"`
}

// ============ Batch ============

type BulkRequest struct {
	Operation          string           `json:"operation" binding:"required"`
	IDs                []uint           `json:"ids"`
	Status             string           `json:"status"`
	Category           string           `json:"category"`
	RenewalPeriodYears int              `json:"renewalPeriodYears"`
	Amount             *decimal.Decimal `json:"amount" swaggertype:"string"`
	Notes              string           `json:"notes"`
	UpdateExpiry       *bool            `json:"updateExpiry"`
}

type BatchFailureResponse struct {
	ID      uint   `json:"id"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type BatchResultResponse struct {
	Operation    string                 `json:"operation"`
	Requested    int                    `json:"requested"`
	Succeeded    int                    `json:"succeeded"`
	SucceededIDs []uint                 `json:"succeededIds"`
	Failed       []BatchFailureResponse `json:"failed"`
	StartedAt    time.Time              `json:"startedAt"`
	FinishedAt   time.Time              `json:"finishedAt"`
	ReportKey    string                 `json:"reportKey,omitempty"`
}

type ReportURLResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ============ Alerts ============

type AlertThresholdResponse struct {
	DaysBeforeExpiry int      `json:"daysBeforeExpiry"`
	Urgency          string   `json:"urgency"`
	Recipients       []string `json:"recipients"`
}

type ReminderResponse struct {
	Service        ServiceResponse        `json:"service"`
	Threshold      AlertThresholdResponse `json:"threshold"`
	ClientEmail    string                 `json:"clientEmail,omitempty"`
	AccountManager string                 `json:"accountManager,omitempty"`
}

// ============ Auth ============

type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	UserID    uint   `json:"user_id"`
	Login     string `json:"login"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	TokenType string `json:"token_type"`
}

type UserResponse struct {
	ID       uint   `json:"id"`
	Login    string `json:"login"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}
