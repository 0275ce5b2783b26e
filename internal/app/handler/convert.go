package handler

import (
	"time"

	"portal/internal/app/dto"
	"portal/internal/app/ds"
	"portal/internal/app/entitlement"
	"portal/internal/app/lifecycle"
)

func toServiceResponse(s entitlement.ServiceSummary) dto.ServiceResponse {
	return dto.ServiceResponse{
		ID:              s.ID,
		ClientID:        s.ClientID,
		ClientName:      s.ClientName,
		ServiceName:     s.ServiceName,
		Category:        string(s.Category),
		DomainName:      s.DomainName,
		Status:          string(s.Status),
		StoredStatus:    string(s.StoredStatus),
		MonthlyPrice:    s.MonthlyPrice,
		BillingCycle:    string(s.BillingCycle),
		AutoRenew:       s.AutoRenew,
		StartDate:       dto.Date{Time: s.StartDate},
		ExpiryDate:      dto.Date{Time: s.ExpiryDate},
		RenewalDate:     dto.Date{Time: s.RenewalDate},
		DaysUntilExpiry: s.DaysUntilExpiry,
		Urgency:         string(s.Urgency),
		Version:         s.Version,
	}
}

func toServiceList(items []entitlement.ServiceSummary) []dto.ServiceResponse {
	out := make([]dto.ServiceResponse, len(items))
	for i, s := range items {
		out[i] = toServiceResponse(s)
	}
	return out
}

func toServiceDetail(d *entitlement.ServiceDetail) dto.ServiceDetailResponse {
	records := make([]dto.DNSRecordResponse, len(d.DNSRecords))
	for i, r := range d.DNSRecords {
		records[i] = dto.DNSRecordResponse{ID: r.ID, Type: r.Type, Host: r.Host, Value: r.Value, Priority: r.Priority, TTL: r.TTL}
	}
	details := d.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	return dto.ServiceDetailResponse{
		ServiceResponse: toServiceResponse(d.ServiceSummary),
		ServiceDetails:  details,
		PaymentMethod:   d.PaymentMethod,
		Notes:           d.Notes,
		CreatedBy:       d.CreatedBy,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		Renewals:        toRenewalList(d.Renewals),
		DNSRecords:      records,
	}
}

func optionalDate(t *time.Time) *dto.Date {
	if t == nil {
		return nil
	}
	return &dto.Date{Time: lifecycle.Date(*t)}
}

func toRenewalResponse(r ds.ServiceRenewal) dto.RenewalResponse {
	return dto.RenewalResponse{
		ID:                 r.ID,
		ServiceID:          r.ClientServiceID,
		Amount:             r.Amount,
		RenewalPeriodYears: r.RenewalPeriodYears,
		RenewedAt:          r.RenewedAt,
		RenewedBy:          r.RenewedBy,
		Status:             string(r.Status),
		Notes:              r.Notes,
		ExtendsExpiry:      r.ExtendsExpiry,
		PreviousExpiry:     optionalDate(r.PreviousExpiry),
		NewExpiry:          optionalDate(r.NewExpiry),
		CompletedAt:        r.CompletedAt,
	}
}

func toRenewalList(items []ds.ServiceRenewal) []dto.RenewalResponse {
	out := make([]dto.RenewalResponse, len(items))
	for i, r := range items {
		out[i] = toRenewalResponse(r)
	}
	return out
}

func toBatchResult(r *entitlement.BatchResult) dto.BatchResultResponse {
	failed := make([]dto.BatchFailureResponse, len(r.Failed))
	for i, f := range r.Failed {
		failed[i] = dto.BatchFailureResponse{ID: f.ID, Reason: string(f.Reason), Message: f.Message}
	}
	return dto.BatchResultResponse{
		Operation:    string(r.Operation),
		Requested:    r.Requested,
		Succeeded:    r.Succeeded,
		SucceededIDs: r.SucceededIDs,
		Failed:       failed,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		ReportKey:    r.ReportKey,
	}
}

func toThreshold(t lifecycle.AlertThreshold) dto.AlertThresholdResponse {
	recipients := make([]string, len(t.Recipients))
	for i, r := range t.Recipients {
		recipients[i] = string(r)
	}
	return dto.AlertThresholdResponse{DaysBeforeExpiry: t.DaysBeforeExpiry, Urgency: string(t.Urgency), Recipients: recipients}
}

func dateValue(d *dto.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
