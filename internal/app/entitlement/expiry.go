package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"portal/internal/app/apperr"
	"portal/internal/app/ds"
	"portal/internal/app/lifecycle"
	"portal/internal/app/repository"
)

// Reminder is one service that hits an alert threshold on a given day,
// with the contacts the notifier should reach.
type Reminder struct {
	Service        ServiceSummary
	Threshold      lifecycle.AlertThreshold
	ClientEmail    string
	AccountManager string
}

// AlertSchedule exposes the reminder policy.
func (s *Service) AlertSchedule() []lifecycle.AlertThreshold {
	return lifecycle.AlertSchedule()
}

// DueReminders lists the services whose days until expiry on day match a
// threshold exactly. A zero day means today.
func (s *Service) DueReminders(ctx context.Context, day time.Time) ([]Reminder, error) {
	today := s.today()
	if !day.IsZero() {
		today = lifecycle.Date(day)
	}
	schedule := lifecycle.AlertSchedule()
	dates := make([]time.Time, 0, len(schedule))
	for _, th := range schedule {
		dates = append(dates, today.AddDate(0, 0, th.DaysBeforeExpiry))
	}

	services, err := s.repo.ServicesExpiringOn(ctx, dates)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(services))
	for _, svc := range services {
		ids = append(ids, svc.ClientID)
	}
	clients, err := s.clients.ClientsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]Reminder, 0, len(services))
	for _, svc := range services {
		summary := summarize(svc, clients[svc.ClientID].Name, today)
		th, ok := lifecycle.ThresholdFor(summary.DaysUntilExpiry)
		if !ok {
			continue
		}
		client := clients[svc.ClientID]
		out = append(out, Reminder{
			Service:        summary,
			Threshold:      th,
			ClientEmail:    client.Email,
			AccountManager: client.AccountManager,
		})
	}
	return out, nil
}

// ReconcileResult summarizes one expiry sweep.
type ReconcileResult struct {
	Checked int
	Expired []uint
	Failed  []BatchFailure
}

// ReconcileExpired writes Expired onto every Active or Suspended row whose
// expiry date has passed. Reads already treat such rows as Expired; the
// sweep only brings stored state in line. With dryRun nothing is written.
func (s *Service) ReconcileExpired(ctx context.Context, dryRun bool) (*ReconcileResult, error) {
	today := s.today()
	stale, err := s.repo.StaleExpired(ctx, today)
	if err != nil {
		return nil, err
	}

	res := &ReconcileResult{Checked: len(stale), Expired: make([]uint, 0, len(stale))}
	for _, candidate := range stale {
		if dryRun {
			res.Expired = append(res.Expired, candidate.ID)
			continue
		}
		var from lifecycle.Status
		var changed bool
		err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			svc, err := tx.GetService(ctx, candidate.ID)
			if err != nil {
				return err
			}
			from = svc.Status
			if !correctExpired(svc, today) {
				return nil
			}
			changed = true
			return tx.UpdateService(ctx, svc)
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			res.Failed = append(res.Failed, BatchFailure{ID: candidate.ID, Reason: apperr.KindOf(err), Message: err.Error()})
			continue
		}
		if !changed {
			continue
		}
		res.Expired = append(res.Expired, candidate.ID)
		s.metrics.ObserveTransition(string(from), string(lifecycle.StatusExpired))
		s.record(ctx, SystemActor, "expire", ds.EntityService, candidate.ID, "expiry date passed",
			map[string]interface{}{"from": string(from)})
	}

	s.logger.WithFields(logrus.Fields{
		"checked": res.Checked,
		"expired": len(res.Expired),
		"failed":  len(res.Failed),
		"dry_run": dryRun,
	}).Info("expiry reconcile finished")
	return res, nil
}
