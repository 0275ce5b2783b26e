package entitlement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"portal/internal/app/apperr"
	"portal/internal/app/lifecycle"
)

// Operation names a batch operation.
type Operation string

const (
	// OpRenew records a Completed renewal per service.
	OpRenew Operation = "renew"
	// OpRenewBulk records a Pending renewal per service, to be confirmed
	// once payment clears.
	OpRenewBulk      Operation = "renew-bulk"
	OpChangeStatus   Operation = "change-status"
	OpChangeCategory Operation = "change-category"
	OpDelete         Operation = "delete"
)

// BatchRequest applies one operation to many services. Parameters not used
// by the operation are ignored.
type BatchRequest struct {
	Operation   Operation
	IDs         []uint
	Status      string
	Category    string
	PeriodYears int
	// Amount overrides the per-service amount, which otherwise is twelve
	// months of the service's monthly price per renewed year.
	Amount       *decimal.Decimal
	Notes        string
	UpdateExpiry *bool
}

// BatchFailure is one item that could not be processed.
type BatchFailure struct {
	ID      uint        `json:"id"`
	Reason  apperr.Kind `json:"reason"`
	Message string      `json:"message"`
}

// BatchResult reports every item of a batch; an item is either listed in
// SucceededIDs or appears in Failed. Succeeded counts the former.
type BatchResult struct {
	Operation    Operation      `json:"operation"`
	Requested    int            `json:"requested"`
	Succeeded    int            `json:"succeeded"`
	SucceededIDs []uint         `json:"succeededIds"`
	Failed       []BatchFailure `json:"failed"`
	StartedAt    time.Time      `json:"startedAt"`
	FinishedAt   time.Time      `json:"finishedAt"`
	ReportKey    string         `json:"reportKey,omitempty"`
}

// BulkOperate applies req to every listed service independently: one item
// failing never affects another. Only a structurally invalid request fails
// as a whole.
func (s *Service) BulkOperate(ctx context.Context, actor Actor, req BatchRequest) (*BatchResult, error) {
	if err := s.authorize(actor, "bulk "+string(req.Operation)); err != nil {
		return nil, err
	}
	item, err := s.batchItem(actor, req)
	if err != nil {
		return nil, err
	}
	ids := dedupe(req.IDs)
	if len(ids) == 0 {
		return nil, apperr.BadRequest("no services selected")
	}
	if s.cfg.BulkMaxItems > 0 && len(ids) > s.cfg.BulkMaxItems {
		return nil, apperr.BadRequest("batch of %d exceeds the limit of %d services", len(ids), s.cfg.BulkMaxItems)
	}

	result := &BatchResult{Operation: req.Operation, Requested: len(ids), StartedAt: s.clock.Now().UTC()}
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(s.cfg.BulkWorkers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			errs[i] = item(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	result.SucceededIDs = make([]uint, 0, len(ids))
	result.Failed = make([]BatchFailure, 0)
	for i, id := range ids {
		if errs[i] == nil {
			result.SucceededIDs = append(result.SucceededIDs, id)
			s.metrics.ObserveBatchItem(string(req.Operation), "ok")
			continue
		}
		kind := apperr.KindOf(errs[i])
		result.Failed = append(result.Failed, BatchFailure{ID: id, Reason: kind, Message: errs[i].Error()})
		s.metrics.ObserveBatchItem(string(req.Operation), string(kind))
	}
	result.Succeeded = len(result.SucceededIDs)
	result.FinishedAt = s.clock.Now().UTC()
	s.metrics.ObserveBatchDuration(string(req.Operation), result.FinishedAt.Sub(result.StartedAt))

	log := s.logger.WithFields(logrus.Fields{
		"operation": req.Operation,
		"requested": result.Requested,
		"succeeded": result.Succeeded,
		"failed":    len(result.Failed),
	})
	if s.archiver != nil {
		key, err := s.archiver.ArchiveBatchReport(ctx, *result)
		if err != nil {
			log.WithError(err).Warn("batch report not archived")
		} else {
			result.ReportKey = key
		}
	}
	log.Info("batch finished")
	return result, nil
}

type itemFunc func(ctx context.Context, id uint) error

// batchItem checks the request parameters once and returns the per-item
// action.
func (s *Service) batchItem(actor Actor, req BatchRequest) (itemFunc, error) {
	switch req.Operation {
	case OpRenew, OpRenewBulk:
		years := req.PeriodYears
		if years == 0 {
			years = 1
		}
		if years < 1 || years > 10 {
			return nil, apperr.BadRequest("renewal period must be between 1 and 10 years")
		}
		if req.Amount != nil && req.Amount.IsNegative() {
			return nil, apperr.BadRequest("amount must not be negative")
		}
		updateExpiry := true
		if req.UpdateExpiry != nil {
			updateExpiry = *req.UpdateExpiry
		}
		status := lifecycle.RenewalCompleted
		if req.Operation == OpRenewBulk {
			status = lifecycle.RenewalPending
		}
		return func(ctx context.Context, id uint) error {
			in := RenewalInput{PeriodYears: years, Notes: req.Notes, UpdateExpiry: updateExpiry}
			if req.Amount != nil {
				in.Amount = *req.Amount
			} else {
				svc, err := s.repo.GetService(ctx, id)
				if err != nil {
					return err
				}
				in.Amount = RenewalAmount(svc.MonthlyPrice, years)
			}
			_, err := s.recordRenewal(ctx, actor, id, in, status)
			return err
		}, nil

	case OpChangeStatus:
		st, ok := lifecycle.ParseStatus(req.Status)
		if !ok || st == lifecycle.StatusDeleted {
			return nil, apperr.BadRequest("invalid target status %q", req.Status)
		}
		return func(ctx context.Context, id uint) error {
			_, err := s.ChangeStatus(ctx, actor, id, req.Status)
			return err
		}, nil

	case OpChangeCategory:
		if _, ok := lifecycle.ParseCategory(req.Category); !ok {
			return nil, apperr.BadRequest("invalid target category %q", req.Category)
		}
		category := req.Category
		return func(ctx context.Context, id uint) error {
			_, err := s.UpdateService(ctx, actor, id, ServiceUpdate{Category: &category})
			return err
		}, nil

	case OpDelete:
		return func(ctx context.Context, id uint) error {
			return s.DeleteService(ctx, actor, id)
		}, nil

	default:
		return nil, apperr.BadRequest("unknown batch operation %q", req.Operation)
	}
}

// RenewalAmount is the default charge for renewing a service: twelve
// monthly payments per year.
func RenewalAmount(monthly decimal.Decimal, years int) decimal.Decimal {
	return monthly.Mul(decimal.NewFromInt(int64(12 * years))).Round(2)
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
