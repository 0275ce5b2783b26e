package entitlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"portal/internal/app/apperr"
	"portal/internal/app/ds"
	"portal/internal/app/lifecycle"
	"portal/internal/app/repository"
)

// CreateService validates in and stores a new service. Domain services get
// a default DNS zone when none exists for the domain yet.
func (s *Service) CreateService(ctx context.Context, actor Actor, in ServiceInput) (*ServiceDetail, error) {
	if err := s.authorize(actor, "create service"); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	category, _ := lifecycle.ParseCategory(in.Category)
	cycle, _ := lifecycle.ParseBillingCycle(in.BillingCycle)
	status := lifecycle.StatusActive
	if in.Status != "" {
		status, _ = lifecycle.ParseStatus(in.Status)
	}

	svc := ds.ClientService{
		ClientID:      in.ClientID,
		ServiceName:   strings.TrimSpace(in.ServiceName),
		Category:      category,
		DomainName:    normalizeDomain(in.DomainName),
		Details:       in.Details,
		MonthlyPrice:  in.MonthlyPrice,
		BillingCycle:  cycle,
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		AutoRenew:     in.AutoRenew,
		StartDate:     lifecycle.Date(in.StartDate),
		ExpiryDate:    lifecycle.Date(in.ExpiryDate),
		Status:        status,
		Notes:         in.Notes,
		CreatedBy:     actor.ID,
	}
	if in.RenewalDate != nil {
		svc.RenewalDate = lifecycle.Date(*in.RenewalDate)
	} else if !svc.ExpiryDate.IsZero() {
		svc.RenewalDate = lifecycle.DefaultRenewalDate(svc.ExpiryDate)
	}
	if err := s.checkService(&svc); err != nil {
		return nil, err
	}
	if len(in.Details) > 0 {
		if err := lifecycle.ValidateDetails(category, in.Details); err != nil {
			return nil, err
		}
	}

	ok, err := s.clients.ClientExists(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Validation("clientId", "client %d does not exist", in.ClientID)
	}

	var dnsCount int
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if svc.Category == lifecycle.CategoryDomain {
			if err := checkDomainFree(ctx, tx, svc.DomainName, 0); err != nil {
				return err
			}
		}
		if err := tx.CreateService(ctx, &svc); err != nil {
			return err
		}
		if svc.Category != lifecycle.CategoryDomain {
			return nil
		}
		exists, err := tx.HasDNSRecords(ctx, svc.DomainName)
		if err != nil || exists {
			return err
		}
		records := s.defaultDNSRecords(svc.ID, svc.DomainName)
		dnsCount = len(records)
		return tx.CreateDNSRecords(ctx, records)
	})
	if err != nil {
		return nil, s.resolveConflict(ctx, err, 0)
	}

	s.logger.WithFields(logrus.Fields{
		"service_id": svc.ID,
		"client_id":  svc.ClientID,
		"category":   svc.Category,
		"dns":        dnsCount,
	}).Info("service created")
	s.record(ctx, actor, "create", ds.EntityService, svc.ID,
		fmt.Sprintf("created %s service %q", svc.Category, svc.ServiceName),
		map[string]interface{}{"status": string(svc.Status), "expiryDate": svc.ExpiryDate.Format(time.DateOnly)})

	return s.GetService(ctx, svc.ID)
}

// UpdateService applies a partial edit. Status is not editable here; use
// ChangeStatus or DeleteService.
func (s *Service) UpdateService(ctx context.Context, actor Actor, id uint, upd ServiceUpdate) (*ServiceDetail, error) {
	if err := s.authorize(actor, "update service"); err != nil {
		return nil, err
	}
	if err := s.check(upd); err != nil {
		return nil, err
	}
	if upd.DomainName != nil && strings.TrimSpace(*upd.DomainName) != "" {
		if err := s.validate.Var(normalizeDomain(*upd.DomainName), "fqdn"); err != nil {
			return nil, apperr.Validation("domainName", "is not a valid domain name")
		}
	}

	today := s.today()
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		svc, err := tx.GetService(ctx, id)
		if err != nil {
			return err
		}
		applyUpdate(svc, upd)
		correctExpired(svc, today)
		if err := s.checkService(svc); err != nil {
			return err
		}
		// Details stay keyed to the category, including across a category change.
		if upd.Details != nil || upd.Category != nil {
			if err := lifecycle.ValidateDetails(svc.Category, svc.Details); err != nil {
				return err
			}
		}
		if svc.Category == lifecycle.CategoryDomain && !svc.Status.IsTerminal() {
			if err := checkDomainFree(ctx, tx, svc.DomainName, svc.ID); err != nil {
				return err
			}
		}
		return tx.UpdateService(ctx, svc)
	})
	if err != nil {
		return nil, s.resolveConflict(ctx, err, id)
	}

	s.record(ctx, actor, "update", ds.EntityService, id, "updated service fields", updateDetails(upd))
	return s.GetService(ctx, id)
}

func applyUpdate(svc *ds.ClientService, upd ServiceUpdate) {
	if upd.ServiceName != nil {
		svc.ServiceName = strings.TrimSpace(*upd.ServiceName)
	}
	if upd.Category != nil {
		svc.Category, _ = lifecycle.ParseCategory(*upd.Category)
	}
	if upd.DomainName != nil {
		svc.DomainName = normalizeDomain(*upd.DomainName)
	}
	if upd.Details != nil {
		svc.Details = upd.Details
	}
	if upd.MonthlyPrice != nil {
		svc.MonthlyPrice = *upd.MonthlyPrice
	}
	if upd.BillingCycle != nil {
		svc.BillingCycle, _ = lifecycle.ParseBillingCycle(*upd.BillingCycle)
	}
	if upd.PaymentMethod != nil {
		svc.PaymentMethod = strings.TrimSpace(*upd.PaymentMethod)
	}
	if upd.AutoRenew != nil {
		svc.AutoRenew = *upd.AutoRenew
	}
	if upd.StartDate != nil {
		svc.StartDate = lifecycle.Date(*upd.StartDate)
	}
	if upd.ExpiryDate != nil {
		svc.ExpiryDate = lifecycle.Date(*upd.ExpiryDate)
		if upd.RenewalDate == nil {
			svc.RenewalDate = lifecycle.DefaultRenewalDate(svc.ExpiryDate)
		}
	}
	if upd.RenewalDate != nil {
		svc.RenewalDate = lifecycle.Date(*upd.RenewalDate)
	}
	if upd.Notes != nil {
		svc.Notes = *upd.Notes
	}
}

func updateDetails(upd ServiceUpdate) map[string]interface{} {
	fields := make([]string, 0, 12)
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(upd.ServiceName != nil, "serviceName")
	add(upd.Category != nil, "category")
	add(upd.DomainName != nil, "domainName")
	add(upd.Details != nil, "serviceDetails")
	add(upd.MonthlyPrice != nil, "monthlyPrice")
	add(upd.BillingCycle != nil, "billingCycle")
	add(upd.PaymentMethod != nil, "paymentMethod")
	add(upd.AutoRenew != nil, "autoRenew")
	add(upd.StartDate != nil, "startDate")
	add(upd.ExpiryDate != nil, "expiryDate")
	add(upd.RenewalDate != nil, "renewalDate")
	add(upd.Notes != nil, "notes")
	return map[string]interface{}{"fields": fields}
}

// checkService enforces the record-level rules shared by create and update.
func (s *Service) checkService(svc *ds.ClientService) error {
	if svc.Category == lifecycle.CategoryDomain && svc.ServiceName == "" {
		svc.ServiceName = svc.DomainName
	}
	if svc.ServiceName == "" {
		return apperr.Validation("serviceName", "is required")
	}
	if err := checkDomain(svc.Category, svc.DomainName); err != nil {
		return err
	}
	if err := checkAmount("monthlyPrice", svc.MonthlyPrice); err != nil {
		return err
	}
	return checkDates(svc.StartDate, svc.ExpiryDate, svc.RenewalDate)
}

func checkDomainFree(ctx context.Context, tx *repository.Repository, domain string, excludeID uint) error {
	other, err := tx.FindActiveDomain(ctx, domain, excludeID)
	if err != nil {
		return err
	}
	if other != nil {
		return &apperr.UniquenessError{Field: "domainName", Value: domain, ConflictingID: other.ID}
	}
	return nil
}

// GetService returns the detail view of a service that is not deleted.
func (s *Service) GetService(ctx context.Context, id uint) (*ServiceDetail, error) {
	svc, err := s.repo.GetService(ctx, id)
	if err != nil {
		return nil, err
	}
	clients, err := s.clients.ClientsByID(ctx, []uint{svc.ClientID})
	if err != nil {
		return nil, err
	}
	renewals, err := s.repo.RenewalsForService(ctx, id)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.DNSRecordsForService(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ServiceDetail{
		ServiceSummary: summarize(*svc, clients[svc.ClientID].Name, s.today()),
		Details:        svc.Details,
		PaymentMethod:  svc.PaymentMethod,
		Notes:          svc.Notes,
		CreatedBy:      svc.CreatedBy,
		CreatedAt:      svc.CreatedAt,
		UpdatedAt:      svc.UpdatedAt,
		Renewals:       renewals,
		DNSRecords:     records,
	}, nil
}

// ListFilter is the caller-facing form of a service listing query.
type ListFilter struct {
	Status     string
	Category   string
	ClientID   uint
	Expiry     string
	WindowDays int
	AutoRenew  *bool
	Search     string
	Offset     int
	Limit      int
}

// ListServices returns one page of summaries and the total match count.
func (s *Service) ListServices(ctx context.Context, f ListFilter) ([]ServiceSummary, int64, error) {
	today := s.today()
	rf := repository.ServiceFilter{
		ClientID:     f.ClientID,
		Expiry:       f.Expiry,
		WindowDays:   f.WindowDays,
		RenewedSince: today.AddDate(0, 0, -s.cfg.RenewedLookbackDays),
		AutoRenew:    f.AutoRenew,
		Search:       f.Search,
		Today:        today,
		Offset:       f.Offset,
		Limit:        f.Limit,
	}
	if rf.WindowDays <= 0 {
		rf.WindowDays = s.cfg.DefaultWindowDays
	}
	if f.Status != "" {
		st, ok := lifecycle.ParseStatus(f.Status)
		if !ok || st == lifecycle.StatusDeleted {
			return nil, 0, apperr.Validation("status", "unknown status %q", f.Status)
		}
		rf.Status = st
	}
	if f.Category != "" {
		c, ok := lifecycle.ParseCategory(f.Category)
		if !ok {
			return nil, 0, apperr.Validation("category", "unknown category %q", f.Category)
		}
		rf.Category = c
	}

	services, total, err := s.repo.ListServices(ctx, rf)
	if err != nil {
		return nil, 0, err
	}
	out, err := s.summarizeAll(ctx, services, today)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (s *Service) summarizeAll(ctx context.Context, services []ds.ClientService, today time.Time) ([]ServiceSummary, error) {
	ids := make([]uint, 0, len(services))
	for _, svc := range services {
		ids = append(ids, svc.ClientID)
	}
	clients, err := s.clients.ClientsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]ServiceSummary, 0, len(services))
	for _, svc := range services {
		out = append(out, summarize(svc, clients[svc.ClientID].Name, today))
	}
	return out, nil
}

// ChangeStatus moves a service to target. Operator moves follow the
// transition table; Expired is accepted only once the expiry date has
// passed. A stale row is corrected to Expired before the move is checked,
// and that correction is kept even when the move itself is refused.
func (s *Service) ChangeStatus(ctx context.Context, actor Actor, id uint, target string) (*ServiceDetail, error) {
	if err := s.authorize(actor, "change service status"); err != nil {
		return nil, err
	}
	to, ok := lifecycle.ParseStatus(target)
	if !ok {
		return nil, apperr.Validation("status", "unknown status %q", target)
	}
	if to == lifecycle.StatusDeleted {
		return nil, apperr.Validation("status", "use delete to remove a service")
	}
	from, err := s.changeStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, "status_change", ds.EntityService, id,
		fmt.Sprintf("status %s -> %s", from, to),
		map[string]interface{}{"from": string(from), "to": string(to)})
	return s.GetService(ctx, id)
}

func (s *Service) changeStatus(ctx context.Context, id uint, to lifecycle.Status) (lifecycle.Status, error) {
	today := s.today()
	var from lifecycle.Status
	var opErr error
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		svc, err := tx.GetService(ctx, id)
		if err != nil {
			return err
		}
		if to == lifecycle.StatusExpired {
			from = svc.Status
			if lifecycle.DaysUntilExpiry(svc.ExpiryDate, today) >= 0 {
				opErr = apperr.InvalidTransition(string(from), string(to))
			} else {
				opErr = lifecycle.Transition(from, to, lifecycle.TriggerExpiry)
			}
			if opErr != nil {
				return nil
			}
			svc.Status = to
			return tx.UpdateService(ctx, svc)
		}

		corrected := correctExpired(svc, today)
		from = svc.Status
		if opErr = lifecycle.Transition(from, to, lifecycle.TriggerOperator); opErr != nil {
			if corrected {
				return tx.UpdateService(ctx, svc)
			}
			return nil
		}
		svc.Status = to
		return tx.UpdateService(ctx, svc)
	})
	if err != nil {
		return "", err
	}
	if opErr != nil {
		return "", opErr
	}
	s.metrics.ObserveTransition(string(from), string(to))
	s.logger.WithFields(logrus.Fields{"service_id": id, "from": from, "to": to}).Info("service status changed")
	return from, nil
}

// DeleteService soft-deletes a service. The row stays for the ledger but is
// hidden from every read, and its domain name is released.
func (s *Service) DeleteService(ctx context.Context, actor Actor, id uint) error {
	if err := s.authorize(actor, "delete service"); err != nil {
		return err
	}
	var prev lifecycle.Status
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		svc, err := tx.GetService(ctx, id)
		if err != nil {
			return err
		}
		prev = svc.Status
		svc.Status = lifecycle.StatusDeleted
		return tx.UpdateService(ctx, svc)
	})
	if err != nil {
		return err
	}
	s.metrics.ObserveTransition(string(prev), string(lifecycle.StatusDeleted))
	s.logger.WithField("service_id", id).Info("service deleted")
	s.record(ctx, actor, "delete", ds.EntityService, id, "service deleted",
		map[string]interface{}{"previousStatus": string(prev)})
	return nil
}

// ExpiringSelection lists Active and Suspended services expiring within
// windowDays, already expired ones included. A nil window uses the
// configured default; zero selects services expiring today or earlier. It is
// the default selection for bulk renewal.
func (s *Service) ExpiringSelection(ctx context.Context, window *int) ([]ServiceSummary, error) {
	windowDays := s.cfg.DefaultWindowDays
	if window != nil {
		if *window < 0 {
			return nil, apperr.Validation("windowDays", "must not be negative")
		}
		windowDays = *window
	}
	today := s.today()
	services, err := s.repo.SelectExpiring(ctx, today, windowDays)
	if err != nil {
		return nil, err
	}
	return s.summarizeAll(ctx, services, today)
}
