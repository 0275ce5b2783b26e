package entitlement_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal/internal/app/apperr"
	"portal/internal/app/ds"
	"portal/internal/app/entitlement"
	"portal/internal/app/lifecycle"
	"portal/internal/app/metrics"
	"portal/internal/app/repository"
	"portal/internal/app/repository/repotest"
	"portal/internal/app/role"
)

var (
	now      = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)
	operator = entitlement.Actor{ID: 7, Login: "operator", Role: role.Operator}
	viewer   = entitlement.Actor{ID: 8, Login: "viewer", Role: role.Viewer}
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	svc    *entitlement.Service
	repo   *repository.Repository
	clock  *testclock.Clock
	client uint
}

func newFixture(t *testing.T, opts ...entitlement.Option) *fixture {
	t.Helper()
	repo := repotest.New(t)
	clk := testclock.NewClock(now)
	logger, _ := test.NewNullLogger()
	opts = append([]entitlement.Option{entitlement.WithMetrics(metrics.MustNewMetrics(prometheus.NewRegistry()))}, opts...)
	return &fixture{
		svc:    entitlement.NewService(repo, clk, logger, opts...),
		repo:   repo,
		clock:  clk,
		client: repotest.Client(t, repo, "acme"),
	}
}

func (f *fixture) input(category lifecycle.Category, name string, expiry time.Time) entitlement.ServiceInput {
	in := entitlement.ServiceInput{
		ClientID:     f.client,
		ServiceName:  name,
		Category:     string(category),
		MonthlyPrice: decimal.RequireFromString("12.50"),
		BillingCycle: string(lifecycle.BillingAnnual),
		StartDate:    expiry.AddDate(-1, 0, 0),
		ExpiryDate:   expiry,
	}
	if category == lifecycle.CategoryDomain {
		in.ServiceName = ""
		in.DomainName = name
	}
	return in
}

func (f *fixture) create(t *testing.T, category lifecycle.Category, name string, expiry time.Time) *entitlement.ServiceDetail {
	t.Helper()
	detail, err := f.svc.CreateService(context.Background(), operator, f.input(category, name, expiry))
	require.NoError(t, err)
	return detail
}

func TestCreateDomainDerivesDatesAndDNS(t *testing.T) {
	f := newFixture(t, entitlement.WithConfig(entitlement.Config{DefaultARecord: "192.0.2.10"}))

	detail := f.create(t, lifecycle.CategoryDomain, "Example.com", day(2026, 10, 20))

	assert.Equal(t, "example.com", detail.DomainName)
	assert.Equal(t, "example.com", detail.ServiceName)
	assert.Equal(t, 5, detail.DaysUntilExpiry)
	assert.Equal(t, lifecycle.UrgencyCritical, detail.Urgency)
	assert.True(t, detail.RenewalDate.Equal(day(2026, 9, 20)), "renewal date %s", detail.RenewalDate)
	assert.Equal(t, lifecycle.StatusActive, detail.Status)
	assert.Equal(t, "acme", detail.ClientName)
	assert.Empty(t, detail.Renewals)

	require.Len(t, detail.DNSRecords, 4)
	types := make([]string, 0, 4)
	for _, r := range detail.DNSRecords {
		types = append(types, r.Type)
	}
	assert.Equal(t, []string{"A", "CNAME", "MX", "TXT"}, types)
	assert.Equal(t, "mail.example.com", detail.DNSRecords[2].Value)
}

func TestCreateSkipsDNSWhenZoneExists(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, lifecycle.CategoryDomain, "example.org", day(2027, 1, 1))
	require.Len(t, first.DNSRecords, 3)

	require.NoError(t, f.svc.DeleteService(context.Background(), operator, first.ID))
	second := f.create(t, lifecycle.CategoryDomain, "example.org", day(2028, 1, 1))
	assert.Empty(t, second.DNSRecords)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	in := f.input(lifecycle.CategoryHosting, "Shared hosting", day(2027, 1, 1))
	late := day(2027, 2, 1)
	in.RenewalDate = &late
	_, err := f.svc.CreateService(ctx, operator, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	in = f.input(lifecycle.CategoryHosting, "Shared hosting", day(2027, 1, 1))
	in.MonthlyPrice = decimal.NewFromInt(-1)
	_, err = f.svc.CreateService(ctx, operator, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	in = f.input(lifecycle.CategoryHosting, "Shared hosting", day(2027, 1, 1))
	in.Category = string(lifecycle.CategoryDomain)
	_, err = f.svc.CreateService(ctx, operator, in)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "domainName", ve.Field)

	in = f.input(lifecycle.CategoryHosting, "Shared hosting", day(2027, 1, 1))
	in.BillingCycle = "Weekly"
	_, err = f.svc.CreateService(ctx, operator, in)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "billingCycle", ve.Field)

	in = f.input(lifecycle.CategoryEmail, "Mail", day(2027, 1, 1))
	in.Details = map[string]any{"licenseKey": "abc"}
	_, err = f.svc.CreateService(ctx, operator, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	in = f.input(lifecycle.CategoryHosting, "Shared hosting", day(2027, 1, 1))
	in.ClientID = 4242
	_, err = f.svc.CreateService(ctx, operator, in)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "clientId", ve.Field)
}

func TestDomainUniqueness(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.create(t, lifecycle.CategoryDomain, "example.com", day(2027, 1, 1))

	_, err := f.svc.CreateService(ctx, operator, f.input(lifecycle.CategoryDomain, "EXAMPLE.com", day(2028, 1, 1)))
	var ue *apperr.UniquenessError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, first.ID, ue.ConflictingID)

	_, err = f.svc.ChangeStatus(ctx, operator, first.ID, "Cancelled")
	require.NoError(t, err)

	second := f.create(t, lifecycle.CategoryDomain, "EXAMPLE.com", day(2028, 1, 1))
	assert.NotEqual(t, first.ID, second.ID)

	other := f.create(t, lifecycle.CategoryDomain, "example.net", day(2027, 1, 1))
	name := "example.com"
	_, err = f.svc.UpdateService(ctx, operator, other.ID, entitlement.ServiceUpdate{DomainName: &name})
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, second.ID, ue.ConflictingID)
}

func TestUpdateServiceRederivesRenewalDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := f.create(t, lifecycle.CategoryHosting, "VPS", day(2027, 1, 31))

	expiry := day(2027, 6, 30)
	notes := "moved to larger plan"
	price := decimal.RequireFromString("20")
	updated, err := f.svc.UpdateService(ctx, operator, created.ID, entitlement.ServiceUpdate{
		ExpiryDate:   &expiry,
		Notes:        &notes,
		MonthlyPrice: &price,
	})
	require.NoError(t, err)
	assert.True(t, updated.ExpiryDate.Equal(expiry))
	assert.True(t, updated.RenewalDate.Equal(day(2027, 5, 31)))
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, created.Version+1, updated.Version)

	_, err = f.svc.UpdateService(ctx, operator, 999, entitlement.ServiceUpdate{Notes: &notes})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateExpiryRevivesLapsedService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lapsed := f.create(t, lifecycle.CategoryHosting, "VPS", day(2026, 10, 10))
	require.Equal(t, lifecycle.StatusExpired, lapsed.Status)
	require.Equal(t, lifecycle.StatusActive, lapsed.StoredStatus)

	expiry := day(2027, 10, 10)
	updated, err := f.svc.UpdateService(ctx, operator, lapsed.ID, entitlement.ServiceUpdate{ExpiryDate: &expiry})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusActive, updated.Status)
	assert.Equal(t, lifecycle.UrgencyNormal, updated.Urgency)

	stored, err := f.repo.GetService(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusActive, stored.Status)

	notes := "still lapsed"
	other := f.create(t, lifecycle.CategoryHosting, "Old VPS", day(2026, 10, 10))
	_, err = f.svc.UpdateService(ctx, operator, other.ID, entitlement.ServiceUpdate{Notes: &notes})
	require.NoError(t, err)
	stored, err = f.repo.GetService(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusExpired, stored.Status)
}

func TestCategoryChangeRevalidatesDetails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	in := f.input(lifecycle.CategoryDomain, "gandi.fr", day(2027, 3, 1))
	in.Details = map[string]any{"registrar": "Gandi"}
	registered, err := f.svc.CreateService(ctx, operator, in)
	require.NoError(t, err)

	hosting := string(lifecycle.CategoryHosting)
	_, err = f.svc.UpdateService(ctx, operator, registered.ID, entitlement.ServiceUpdate{Category: &hosting})
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "serviceDetails.registrar", ve.Field)

	stored, err := f.repo.GetService(ctx, registered.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.CategoryDomain, stored.Category)

	updated, err := f.svc.UpdateService(ctx, operator, registered.ID, entitlement.ServiceUpdate{
		Category: &hosting,
		Details:  map[string]any{"controlPanel": "cPanel"},
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.CategoryHosting, updated.Category)
	assert.Equal(t, "cPanel", updated.Details["controlPanel"])

	in = f.input(lifecycle.CategoryDomain, "other.fr", day(2027, 3, 1))
	in.Details = map[string]any{"registrar": "Gandi"}
	withDetails, err := f.svc.CreateService(ctx, operator, in)
	require.NoError(t, err)
	bare := f.create(t, lifecycle.CategoryDomain, "bare.fr", day(2027, 3, 1))

	res, err := f.svc.BulkOperate(ctx, operator, entitlement.BatchRequest{
		Operation: entitlement.OpChangeCategory,
		Category:  hosting,
		IDs:       []uint{withDetails.ID, bare.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, []uint{bare.ID}, res.SucceededIDs)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, withDetails.ID, res.Failed[0].ID)
	assert.Equal(t, apperr.KindValidation, res.Failed[0].Reason)
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.create(t, lifecycle.CategoryHosting, "VPS", day(2027, 1, 1))

	got, err := f.svc.ChangeStatus(ctx, operator, svc.ID, "Suspended")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusSuspended, got.Status)

	_, err = f.svc.ChangeStatus(ctx, operator, svc.ID, "Expired")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.svc.ChangeStatus(ctx, operator, svc.ID, "Cancelled")
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, operator, svc.ID, "Active")
	var te *apperr.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Cancelled", te.Current)
	assert.Equal(t, "Active", te.Attempted)

	_, err = f.svc.RenewService(ctx, operator, svc.ID, entitlement.RenewalInput{Amount: decimal.NewFromInt(1), PeriodYears: 1, UpdateExpiry: true})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = f.svc.ChangeStatus(ctx, operator, svc.ID, "Deleted")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStaleStatusIsCorrectedWhenTouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.create(t, lifecycle.CategoryHosting, "VPS", day(2026, 10, 12))
	assert.Equal(t, lifecycle.StatusExpired, svc.Status)
	assert.Equal(t, lifecycle.StatusActive, svc.StoredStatus)
	assert.Equal(t, lifecycle.UrgencyExpired, svc.Urgency)

	_, err := f.svc.ChangeStatus(ctx, operator, svc.ID, "Suspended")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	stored, err := f.repo.GetService(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusExpired, stored.Status)
}

func TestRenewExpiredService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.create(t, lifecycle.CategoryDomain, "lapsed.io", day(2026, 10, 12))
	require.Equal(t, lifecycle.StatusExpired, svc.Status)

	renewal, err := f.svc.RenewService(ctx, operator, svc.ID, entitlement.RenewalInput{
		Amount:       decimal.RequireFromString("15.00"),
		PeriodYears:  1,
		UpdateExpiry: true,
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.RenewalCompleted, renewal.Status)
	require.NotNil(t, renewal.NewExpiry)
	assert.True(t, renewal.NewExpiry.Equal(day(2027, 10, 12)))

	detail, err := f.svc.GetService(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusActive, detail.Status)
	assert.True(t, detail.ExpiryDate.Equal(day(2027, 10, 12)))
	assert.True(t, detail.RenewalDate.Equal(day(2027, 9, 12)))
	require.Len(t, detail.Renewals, 1)

	f.clock.Advance(time.Hour)
	_, err = f.svc.RenewService(ctx, operator, svc.ID, entitlement.RenewalInput{Amount: decimal.Zero, PeriodYears: 2, Notes: "courtesy"})
	require.NoError(t, err)

	detail, err = f.svc.GetService(ctx, svc.ID)
	require.NoError(t, err)
	require.Len(t, detail.Renewals, 2)
	assert.Equal(t, "courtesy", detail.Renewals[0].Notes)
	assert.True(t, detail.ExpiryDate.Equal(day(2027, 10, 12)), "renewal without expiry update keeps the date")
}

func TestRenewalValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.create(t, lifecycle.CategoryHosting, "VPS", day(2027, 1, 1))

	_, err := f.svc.RenewService(ctx, operator, svc.ID, entitlement.RenewalInput{Amount: decimal.NewFromInt(-5), PeriodYears: 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.RenewService(ctx, operator, svc.ID, entitlement.RenewalInput{Amount: decimal.NewFromInt(5), PeriodYears: 0})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.RenewService(ctx, operator, 999, entitlement.RenewalInput{Amount: decimal.NewFromInt(5), PeriodYears: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestEditRenewal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.create(t, lifecycle.CategoryHosting, "VPS", day(2027, 1, 1))
	done, err := f.svc.RenewService(ctx, operator, svc.ID, entitlement.RenewalInput{Amount: decimal.NewFromInt(100), PeriodYears: 1})
	require.NoError(t, err)

	amount := decimal.NewFromInt(120)
	_, err = f.svc.EditRenewal(ctx, operator, done.ID, entitlement.RenewalUpdate{Amount: &amount})
	var ie *apperr.ImmutableRecordError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Completed", ie.Status)

	notes := "invoice 2026-114"
	edited, err := f.svc.EditRenewal(ctx, operator, done.ID, entitlement.RenewalUpdate{Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, edited.Notes)
	assert.True(t, edited.Amount.Equal(decimal.NewFromInt(100)))

	before, err := f.repo.AuditTrail(ctx, ds.EntityRenewal, done.ID)
	require.NoError(t, err)
	unchanged, err := f.svc.EditRenewal(ctx, operator, done.ID, entitlement.RenewalUpdate{})
	require.NoError(t, err)
	assert.Equal(t, notes, unchanged.Notes)
	after, err := f.repo.AuditTrail(ctx, ds.EntityRenewal, done.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before), "an empty edit is not audited")

	_, err = f.svc.MarkFailed(ctx, operator, done.ID)
	assert.ErrorIs(t, err, apperr.ErrImmutableRecord)

	require.NoError(t, f.svc.DeleteRenewal(ctx, operator, done.ID))
	assert.ErrorIs(t, f.svc.DeleteRenewal(ctx, operator, done.ID), apperr.ErrNotFound)
}

func TestViewerCannotMutate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.create(t, lifecycle.CategoryHosting, "VPS", day(2027, 1, 1))

	_, err := f.svc.CreateService(ctx, viewer, f.input(lifecycle.CategoryHosting, "Other", day(2027, 1, 1)))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.ChangeStatus(ctx, viewer, svc.ID, "Suspended")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.RenewService(ctx, viewer, svc.ID, entitlement.RenewalInput{Amount: decimal.NewFromInt(1), PeriodYears: 1})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.svc.BulkOperate(ctx, viewer, entitlement.BatchRequest{Operation: entitlement.OpDelete, IDs: []uint{svc.ID}})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.ErrorIs(t, f.svc.DeleteService(ctx, viewer, svc.ID), apperr.ErrForbidden)

	detail, err := f.svc.GetService(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusActive, detail.Status)

	list, total, err := f.svc.ListServices(ctx, entitlement.ListFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)
}

func TestDeleteServiceHidesIt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.create(t, lifecycle.CategoryHosting, "VPS", day(2027, 1, 1))

	require.NoError(t, f.svc.DeleteService(ctx, operator, svc.ID))
	_, err := f.svc.GetService(ctx, svc.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, f.svc.DeleteService(ctx, operator, svc.ID), apperr.ErrNotFound)

	events, err := f.repo.AuditTrail(ctx, ds.EntityService, svc.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "create", events[0].Action)
	assert.Equal(t, "delete", events[1].Action)
	assert.Equal(t, "operator", events[1].ActorLogin)
}

func TestListServicesFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, lifecycle.CategoryDomain, "soon.com", day(2026, 10, 25))
	f.create(t, lifecycle.CategoryHosting, "VPS", day(2027, 6, 1))
	f.create(t, lifecycle.CategoryEmail, "Mail", day(2026, 10, 1))

	expiring, _, err := f.svc.ListServices(ctx, entitlement.ListFilter{Expiry: repository.ExpiryExpiring})
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "soon.com", expiring[0].DomainName)

	expired, _, err := f.svc.ListServices(ctx, entitlement.ListFilter{Status: "Expired"})
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "Mail", expired[0].ServiceName)

	_, _, err = f.svc.ListServices(ctx, entitlement.ListFilter{Status: "Bogus"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	selection, err := f.svc.ExpiringSelection(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, selection, 2)
}

func TestExpiringSelectionWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, lifecycle.CategoryDomain, "later.com", day(2026, 11, 1))
	f.create(t, lifecycle.CategoryHosting, "Today", day(2026, 10, 15))
	f.create(t, lifecycle.CategoryEmail, "Lapsed", day(2026, 10, 1))

	window := 0
	selection, err := f.svc.ExpiringSelection(ctx, &window)
	require.NoError(t, err)
	require.Len(t, selection, 2)
	assert.Equal(t, "Lapsed", selection[0].ServiceName)
	assert.Equal(t, "Today", selection[1].ServiceName)

	window = 17
	selection, err = f.svc.ExpiringSelection(ctx, &window)
	require.NoError(t, err)
	assert.Len(t, selection, 3)

	window = -1
	_, err = f.svc.ExpiringSelection(ctx, &window)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "windowDays", ve.Field)
}

type fakeArchiver struct {
	mu      sync.Mutex
	reports []entitlement.BatchResult
}

func (a *fakeArchiver) ArchiveBatchReport(_ context.Context, result entitlement.BatchResult) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reports = append(a.reports, result)
	return "reports/batch-1.json", nil
}

func TestBulkRenewIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	archiver := &fakeArchiver{}
	f := newFixture(t, entitlement.WithArchiver(archiver), entitlement.WithConfig(entitlement.Config{BulkWorkers: 2}))
	a := f.create(t, lifecycle.CategoryDomain, "a.com", day(2026, 11, 1))
	b := f.create(t, lifecycle.CategoryDomain, "b.com", day(2026, 11, 2))
	gone := f.create(t, lifecycle.CategoryDomain, "c.com", day(2026, 11, 3))
	require.NoError(t, f.svc.DeleteService(ctx, operator, gone.ID))

	res, err := f.svc.BulkOperate(ctx, operator, entitlement.BatchRequest{
		Operation: entitlement.OpRenewBulk,
		IDs:       []uint{a.ID, b.ID, gone.ID, a.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, 2, res.Succeeded)
	assert.ElementsMatch(t, []uint{a.ID, b.ID}, res.SucceededIDs)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, gone.ID, res.Failed[0].ID)
	assert.Equal(t, apperr.KindNotFound, res.Failed[0].Reason)
	assert.Equal(t, "reports/batch-1.json", res.ReportKey)
	require.Len(t, archiver.reports, 1)

	pending, total, err := f.svc.ListRenewals(ctx, entitlement.RenewalQuery{Status: "Pending"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, r := range pending {
		assert.True(t, r.Amount.Equal(decimal.RequireFromString("150")), "twelve months of 12.50")
		assert.True(t, r.ExtendsExpiry)
	}

	detail, err := f.svc.GetService(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, detail.ExpiryDate.Equal(day(2026, 11, 1)), "pending renewal does not move expiry")
	renewalID := detail.Renewals[0].ID

	completed, err := f.svc.MarkComplete(ctx, operator, renewalID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.RenewalCompleted, completed.Status)

	detail, err = f.svc.GetService(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, detail.ExpiryDate.Equal(day(2027, 11, 1)))

	before, err := f.svc.GetRenewal(ctx, renewalID)
	require.NoError(t, err)
	again, err := f.svc.MarkComplete(ctx, operator, renewalID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.RenewalCompleted, again.Status)
	after, err := f.svc.GetRenewal(ctx, renewalID)
	require.NoError(t, err)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))

	detail, err = f.svc.GetService(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, detail.ExpiryDate.Equal(day(2027, 11, 1)), "second completion does not extend again")
}

func TestBulkRejectsMalformedRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, entitlement.WithConfig(entitlement.Config{BulkMaxItems: 2}))

	_, err := f.svc.BulkOperate(ctx, operator, entitlement.BatchRequest{Operation: entitlement.OpDelete})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	_, err = f.svc.BulkOperate(ctx, operator, entitlement.BatchRequest{Operation: "archive", IDs: []uint{1}})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	_, err = f.svc.BulkOperate(ctx, operator, entitlement.BatchRequest{Operation: entitlement.OpChangeStatus, Status: "Nope", IDs: []uint{1}})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
	_, err = f.svc.BulkOperate(ctx, operator, entitlement.BatchRequest{Operation: entitlement.OpDelete, IDs: []uint{1, 2, 3}})
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestBulkStatusAndCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	active := f.create(t, lifecycle.CategoryHosting, "VPS", day(2027, 1, 1))
	mail := f.create(t, lifecycle.CategoryEmail, "Mail", day(2027, 2, 1))
	cancelled := f.create(t, lifecycle.CategoryHosting, "Old VPS", day(2027, 1, 1))
	_, err := f.svc.ChangeStatus(ctx, operator, cancelled.ID, "Cancelled")
	require.NoError(t, err)

	res, err := f.svc.BulkOperate(ctx, operator, entitlement.BatchRequest{
		Operation: entitlement.OpChangeStatus,
		Status:    "Suspended",
		IDs:       []uint{active.ID, 999, mail.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, 2, res.Succeeded)
	assert.ElementsMatch(t, []uint{active.ID, mail.ID}, res.SucceededIDs)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, uint(999), res.Failed[0].ID)
	assert.Equal(t, apperr.KindNotFound, res.Failed[0].Reason)
	for _, id := range []uint{active.ID, mail.ID} {
		detail, err := f.svc.GetService(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, lifecycle.StatusSuspended, detail.Status)
	}

	res, err = f.svc.BulkOperate(ctx, operator, entitlement.BatchRequest{
		Operation: entitlement.OpChangeStatus,
		Status:    "Active",
		IDs:       []uint{active.ID, cancelled.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, []uint{active.ID}, res.SucceededIDs)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, apperr.KindInvalidTransition, res.Failed[0].Reason)

	res, err = f.svc.BulkOperate(ctx, operator, entitlement.BatchRequest{
		Operation: entitlement.OpChangeCategory,
		Category:  "Domain",
		IDs:       []uint{active.ID},
	})
	require.NoError(t, err)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, apperr.KindValidation, res.Failed[0].Reason)
}

func TestDueReminders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.create(t, lifecycle.CategoryHosting, "thirty", day(2026, 11, 14))
	f.create(t, lifecycle.CategoryHosting, "fifteen", day(2026, 10, 30))
	f.create(t, lifecycle.CategoryHosting, "fourteen", day(2026, 10, 29))
	f.create(t, lifecycle.CategoryHosting, "today", day(2026, 10, 15))

	reminders, err := f.svc.DueReminders(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, reminders, 3)

	byName := map[string]entitlement.Reminder{}
	for _, r := range reminders {
		byName[r.Service.ServiceName] = r
	}
	assert.Equal(t, 30, byName["thirty"].Threshold.DaysBeforeExpiry)
	assert.Equal(t, lifecycle.UrgencyWarning, byName["thirty"].Threshold.Urgency)
	assert.Equal(t, 0, byName["today"].Threshold.DaysBeforeExpiry)
	assert.Equal(t, "am@acme.test", byName["today"].AccountManager)
	assert.NotContains(t, byName, "fourteen")
}

func TestReconcileExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	stale := f.create(t, lifecycle.CategoryHosting, "stale", day(2026, 10, 1))
	f.create(t, lifecycle.CategoryHosting, "fresh", day(2027, 10, 1))

	res, err := f.svc.ReconcileExpired(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []uint{stale.ID}, res.Expired)
	stored, err := f.repo.GetService(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusActive, stored.Status)

	res, err = f.svc.ReconcileExpired(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Checked)
	assert.Equal(t, []uint{stale.ID}, res.Expired)
	stored, err = f.repo.GetService(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusExpired, stored.Status)

	res, err = f.svc.ReconcileExpired(ctx, false)
	require.NoError(t, err)
	assert.Zero(t, res.Checked)
}

func TestClockDrivesExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.create(t, lifecycle.CategoryHosting, "VPS", day(2026, 10, 16))
	assert.Equal(t, 1, svc.DaysUntilExpiry)

	f.clock.Advance(48 * time.Hour)
	detail, err := f.svc.GetService(ctx, svc.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, detail.DaysUntilExpiry)
	assert.Equal(t, lifecycle.StatusExpired, detail.Status)
}
