// Package entitlement implements the service entitlement lifecycle: service
// records, status transitions, the renewal ledger and batch operations.
// Presentation, sessions and client records live outside and are reached
// through the small interfaces declared here.
package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"portal/internal/app/apperr"
	"portal/internal/app/ds"
	"portal/internal/app/lifecycle"
	"portal/internal/app/metrics"
	"portal/internal/app/repository"
	"portal/internal/app/role"
)

// Actor is the staff member performing an operation.
type Actor struct {
	ID    uint
	Login string
	Role  role.Role
}

// SystemActor is used by scheduled jobs.
var SystemActor = Actor{Login: "system", Role: role.Admin}

// Authorizer is the capability check gating every mutating operation.
type Authorizer interface {
	CanManageServices(actor Actor) bool
}

// RoleAuthorizer grants management to operators and admins.
type RoleAuthorizer struct{}

func (RoleAuthorizer) CanManageServices(actor Actor) bool {
	return actor.Role.CanManageServices()
}

// ClientDirectory resolves client ids. The core never writes client data.
type ClientDirectory interface {
	ClientExists(ctx context.Context, id uint) (bool, error)
	ClientsByID(ctx context.Context, ids []uint) (map[uint]ds.Client, error)
}

// AuditLog receives one event per successful mutating operation.
type AuditLog interface {
	RecordAudit(ctx context.Context, event *ds.AuditEvent) error
}

// ReportArchiver stores batch results somewhere durable and returns a key.
type ReportArchiver interface {
	ArchiveBatchReport(ctx context.Context, result BatchResult) (string, error)
}

// Config tunes the core. Zero values fall back to defaults.
type Config struct {
	BulkWorkers         int
	BulkMaxItems        int
	DefaultWindowDays   int
	RenewedLookbackDays int
	DefaultARecord      string
	DefaultMX           string
}

func (c Config) withDefaults() Config {
	if c.BulkWorkers <= 0 {
		c.BulkWorkers = 4
	}
	if c.DefaultWindowDays <= 0 {
		c.DefaultWindowDays = 30
	}
	if c.RenewedLookbackDays <= 0 {
		c.RenewedLookbackDays = 30
	}
	return c
}

// Service is the entry point for every entitlement operation.
type Service struct {
	repo     *repository.Repository
	clients  ClientDirectory
	audit    AuditLog
	auth     Authorizer
	archiver ReportArchiver
	metrics  *metrics.Metrics
	clock    clock.Clock
	logger   logrus.FieldLogger
	validate *validator.Validate
	cfg      Config
}

type Option func(*Service)

func WithAuthorizer(a Authorizer) Option { return func(s *Service) { s.auth = a } }
func WithClientDirectory(c ClientDirectory) Option { return func(s *Service) { s.clients = c } }
func WithAuditLog(a AuditLog) Option { return func(s *Service) { s.audit = a } }
func WithArchiver(a ReportArchiver) Option { return func(s *Service) { s.archiver = a } }
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }
func WithConfig(c Config) Option { return func(s *Service) { s.cfg = c } }

// NewService wires a Service. The repository doubles as client directory and
// audit log unless options replace them.
func NewService(repo *repository.Repository, clk clock.Clock, logger logrus.FieldLogger, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		clients:  repo,
		audit:    repo,
		auth:     RoleAuthorizer{},
		clock:    clk,
		logger:   logger,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg = s.cfg.withDefaults()
	return s
}

func (s *Service) today() time.Time {
	return lifecycle.Date(s.clock.Now())
}

func (s *Service) authorize(actor Actor, action string) error {
	if !s.auth.CanManageServices(actor) {
		s.logger.WithFields(logrus.Fields{"actor": actor.Login, "action": action}).Warn("permission denied")
		return apperr.Forbidden(action)
	}
	return nil
}

// record emits an audit event. Audit durability belongs to the audit store,
// so a failure is logged and does not undo the operation.
func (s *Service) record(ctx context.Context, actor Actor, action, entityType string, entityID uint, summary string, details map[string]interface{}) {
	event := &ds.AuditEvent{
		ActorID:    actor.ID,
		ActorLogin: actor.Login,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Summary:    summary,
		Details:    details,
	}
	if err := s.audit.RecordAudit(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"action":    action,
			"entity":    entityType,
			"entity_id": entityID,
		}).Error("audit event lost")
	}
}

// resolveConflict fills in the conflicting service of a uniqueness error
// raised by the index, which only knows the duplicate value.
func (s *Service) resolveConflict(ctx context.Context, err error, excludeID uint) error {
	var ue *apperr.UniquenessError
	if !errors.As(err, &ue) || ue.ConflictingID != 0 {
		return err
	}
	if c, lookupErr := s.repo.FindActiveDomain(ctx, ue.Value, excludeID); lookupErr == nil && c != nil {
		ue.ConflictingID = c.ID
	}
	return err
}

// correctExpired rewrites a stale Active/Suspended status to Expired on a row
// a mutating operation is about to touch. It reports whether it changed svc.
func correctExpired(svc *ds.ClientService, today time.Time) bool {
	eff := lifecycle.EffectiveStatus(svc.Status, svc.ExpiryDate, today)
	if eff == svc.Status {
		return false
	}
	if lifecycle.Transition(svc.Status, eff, lifecycle.TriggerExpiry) != nil {
		return false
	}
	svc.Status = eff
	return true
}
