package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"portal/internal/app/apperr"
	"portal/internal/app/ds"
	"portal/internal/app/lifecycle"
	"portal/internal/app/repository"
)

// RenewService records a confirmed renewal. With UpdateExpiry the service is
// extended by PeriodYears from its current expiry and becomes Active.
func (s *Service) RenewService(ctx context.Context, actor Actor, serviceID uint, in RenewalInput) (*ds.ServiceRenewal, error) {
	if err := s.authorize(actor, "renew service"); err != nil {
		return nil, err
	}
	if err := s.checkRenewal(in); err != nil {
		return nil, err
	}
	return s.recordRenewal(ctx, actor, serviceID, in, lifecycle.RenewalCompleted)
}

func (s *Service) checkRenewal(in RenewalInput) error {
	if err := s.check(in); err != nil {
		return err
	}
	return checkAmount("amount", in.Amount)
}

// recordRenewal appends a ledger entry in status. A Pending entry that asks
// for an expiry update defers the extension until it is marked complete.
func (s *Service) recordRenewal(ctx context.Context, actor Actor, serviceID uint, in RenewalInput, status lifecycle.RenewalStatus) (*ds.ServiceRenewal, error) {
	today := s.today()
	now := s.clock.Now().UTC()
	renewal := &ds.ServiceRenewal{
		ClientServiceID:    serviceID,
		Amount:             in.Amount,
		RenewalPeriodYears: in.PeriodYears,
		RenewedAt:          now,
		RenewedBy:          actor.ID,
		Status:             status,
		Notes:              in.Notes,
	}
	if status == lifecycle.RenewalCompleted {
		renewal.CompletedAt = &now
	}

	var from lifecycle.Status
	var opErr error
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		svc, err := tx.GetService(ctx, serviceID)
		if err != nil {
			return err
		}
		corrected := correctExpired(svc, today)
		from = svc.Status
		if opErr = lifecycle.Transition(from, lifecycle.StatusActive, lifecycle.TriggerRenewal); opErr != nil {
			if corrected {
				return tx.UpdateService(ctx, svc)
			}
			return nil
		}

		switch {
		case in.UpdateExpiry && status == lifecycle.RenewalCompleted:
			applyExtension(svc, renewal, in.PeriodYears)
			if err := tx.UpdateService(ctx, svc); err != nil {
				return err
			}
		case corrected:
			renewal.ExtendsExpiry = in.UpdateExpiry
			if err := tx.UpdateService(ctx, svc); err != nil {
				return err
			}
		default:
			renewal.ExtendsExpiry = in.UpdateExpiry
		}
		return tx.CreateRenewal(ctx, renewal)
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}

	s.metrics.ObserveRenewal(string(status))
	if renewal.NewExpiry != nil && from != lifecycle.StatusActive {
		s.metrics.ObserveTransition(string(from), string(lifecycle.StatusActive))
	}
	fields := logrus.Fields{"service_id": serviceID, "renewal_id": renewal.ID, "status": status}
	if renewal.NewExpiry != nil {
		fields["new_expiry"] = renewal.NewExpiry.Format(time.DateOnly)
	}
	s.logger.WithFields(fields).Info("renewal recorded")
	s.record(ctx, actor, "renew", ds.EntityRenewal, renewal.ID,
		fmt.Sprintf("%s renewal of service %d for %d year(s)", status, serviceID, in.PeriodYears),
		map[string]interface{}{"serviceId": serviceID, "amount": in.Amount.StringFixed(2), "updateExpiry": in.UpdateExpiry})
	return renewal, nil
}

// applyExtension moves the service expiry forward and reactivates it,
// noting both dates on the renewal.
func applyExtension(svc *ds.ClientService, renewal *ds.ServiceRenewal, years int) {
	prev := lifecycle.Date(svc.ExpiryDate)
	next := lifecycle.ExtendExpiry(prev, years)
	svc.ExpiryDate = next
	svc.RenewalDate = lifecycle.DefaultRenewalDate(next)
	svc.Status = lifecycle.StatusActive
	renewal.PreviousExpiry = &prev
	renewal.NewExpiry = &next
}

// RenewalQuery is the caller-facing form of a ledger listing.
type RenewalQuery struct {
	ServiceID uint
	Status    string
	From      *time.Time
	To        *time.Time
	Offset    int
	Limit     int
}

// ListRenewals pages through the ledger, newest first.
func (s *Service) ListRenewals(ctx context.Context, q RenewalQuery) ([]ds.ServiceRenewal, int64, error) {
	f := repository.RenewalFilter{ServiceID: q.ServiceID, From: q.From, To: q.To, Offset: q.Offset, Limit: q.Limit}
	if q.Status != "" {
		st, ok := lifecycle.ParseRenewalStatus(q.Status)
		if !ok {
			return nil, 0, apperr.Validation("status", "unknown renewal status %q", q.Status)
		}
		f.Status = st
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, 0, apperr.Validation("to", "must not be before from")
	}
	return s.repo.ListRenewals(ctx, f)
}

func (s *Service) GetRenewal(ctx context.Context, id uint) (*ds.ServiceRenewal, error) {
	return s.repo.GetRenewal(ctx, id)
}

// EditRenewal changes a ledger entry. Only notes may change once the
// renewal has left Pending.
func (s *Service) EditRenewal(ctx context.Context, actor Actor, id uint, upd RenewalUpdate) (*ds.ServiceRenewal, error) {
	if err := s.authorize(actor, "edit renewal"); err != nil {
		return nil, err
	}
	if err := s.check(upd); err != nil {
		return nil, err
	}
	if upd.Amount != nil {
		if err := checkAmount("amount", *upd.Amount); err != nil {
			return nil, err
		}
	}

	if upd.empty() {
		return s.repo.GetRenewal(ctx, id)
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		r, err := tx.GetRenewal(ctx, id)
		if err != nil {
			return err
		}
		if upd.notesOnly() {
			r.Notes = *upd.Notes
			return tx.UpdateRenewalNotes(ctx, id, r.Notes)
		}
		if r.Status != lifecycle.RenewalPending {
			return apperr.ImmutableRecord("renewal", id, string(r.Status))
		}
		if upd.Amount != nil {
			r.Amount = *upd.Amount
		}
		if upd.PeriodYears != nil {
			r.RenewalPeriodYears = *upd.PeriodYears
		}
		if upd.RenewedAt != nil {
			r.RenewedAt = upd.RenewedAt.UTC()
		}
		if upd.Notes != nil {
			r.Notes = *upd.Notes
		}
		return tx.UpdateRenewal(ctx, r, lifecycle.RenewalPending)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, "edit", ds.EntityRenewal, id, "renewal edited",
		map[string]interface{}{"notesOnly": upd.notesOnly()})
	return s.repo.GetRenewal(ctx, id)
}

// MarkComplete settles a Pending renewal. A renewal already Completed is
// returned unchanged. Deferred expiry extensions are applied here.
func (s *Service) MarkComplete(ctx context.Context, actor Actor, id uint) (*ds.ServiceRenewal, error) {
	return s.settle(ctx, actor, id, lifecycle.RenewalCompleted)
}

// MarkFailed closes a Pending renewal as Failed. A renewal already Failed is
// returned unchanged.
func (s *Service) MarkFailed(ctx context.Context, actor Actor, id uint) (*ds.ServiceRenewal, error) {
	return s.settle(ctx, actor, id, lifecycle.RenewalFailed)
}

func (s *Service) settle(ctx context.Context, actor Actor, id uint, target lifecycle.RenewalStatus) (*ds.ServiceRenewal, error) {
	if err := s.authorize(actor, "settle renewal"); err != nil {
		return nil, err
	}

	today := s.today()
	var renewal *ds.ServiceRenewal
	var from lifecycle.Status
	var changed bool
	var opErr error
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		r, err := tx.GetRenewal(ctx, id)
		if err != nil {
			return err
		}
		renewal = r
		switch r.Status {
		case target:
			return nil
		case lifecycle.RenewalPending:
		default:
			opErr = apperr.ImmutableRecord("renewal", id, string(r.Status))
			return nil
		}

		if target == lifecycle.RenewalCompleted && r.ExtendsExpiry {
			svc, err := tx.GetService(ctx, r.ClientServiceID)
			if err != nil {
				return err
			}
			corrected := correctExpired(svc, today)
			from = svc.Status
			if opErr = lifecycle.Transition(from, lifecycle.StatusActive, lifecycle.TriggerRenewal); opErr != nil {
				if corrected {
					return tx.UpdateService(ctx, svc)
				}
				return nil
			}
			applyExtension(svc, r, r.RenewalPeriodYears)
			if err := tx.UpdateService(ctx, svc); err != nil {
				return err
			}
		}

		r.Status = target
		if target == lifecycle.RenewalCompleted {
			now := s.clock.Now().UTC()
			r.CompletedAt = &now
		}
		changed = true
		return tx.UpdateRenewal(ctx, r, lifecycle.RenewalPending)
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	if !changed {
		return renewal, nil
	}

	s.metrics.ObserveRenewal(string(target))
	if renewal.NewExpiry != nil && from != lifecycle.StatusActive {
		s.metrics.ObserveTransition(string(from), string(lifecycle.StatusActive))
	}
	s.logger.WithFields(logrus.Fields{"renewal_id": id, "status": target}).Info("renewal settled")
	s.record(ctx, actor, "settle", ds.EntityRenewal, id, fmt.Sprintf("renewal marked %s", target),
		map[string]interface{}{"serviceId": renewal.ClientServiceID, "status": string(target)})
	return renewal, nil
}

// DeleteRenewal removes a ledger entry for good.
func (s *Service) DeleteRenewal(ctx context.Context, actor Actor, id uint) error {
	if err := s.authorize(actor, "delete renewal"); err != nil {
		return err
	}
	renewal, err := s.repo.GetRenewal(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRenewal(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"renewal_id": id, "service_id": renewal.ClientServiceID}).Warn("renewal deleted")
	s.record(ctx, actor, "delete", ds.EntityRenewal, id, "renewal deleted",
		map[string]interface{}{
			"serviceId": renewal.ClientServiceID,
			"status":    string(renewal.Status),
			"amount":    renewal.Amount.StringFixed(2),
		})
	return nil
}
