package lifecycle

// Status is the stored lifecycle state of a client service.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusActive    Status = "Active"
	StatusSuspended Status = "Suspended"
	StatusCancelled Status = "Cancelled"
	StatusExpired   Status = "Expired"
	// StatusDeleted is the soft-delete sentinel. It sits outside the state
	// machine and hides the row from reads while keeping its renewals.
	StatusDeleted Status = "Deleted"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusActive, StatusSuspended, StatusCancelled, StatusExpired, StatusDeleted:
		return st, true
	}
	return "", false
}

// IsTerminal reports whether no lifecycle transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusDeleted
}

// IsEntry reports whether a service may be created in s.
func (s Status) IsEntry() bool {
	return s == StatusPending || s == StatusActive
}

type Category string

const (
	CategoryDomain       Category = "Domain"
	CategoryHosting      Category = "Hosting"
	CategoryEmail        Category = "Email"
	CategorySecurity     Category = "Security"
	CategorySubscription Category = "Subscription"
	CategoryOther        Category = "Other"
)

func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case CategoryDomain, CategoryHosting, CategoryEmail, CategorySecurity, CategorySubscription, CategoryOther:
		return c, true
	}
	return "", false
}

type BillingCycle string

const (
	BillingMonthly    BillingCycle = "Monthly"
	BillingQuarterly  BillingCycle = "Quarterly"
	BillingSemiAnnual BillingCycle = "Semi-Annually"
	BillingAnnual     BillingCycle = "Annually"
	BillingBiennial   BillingCycle = "Biennially"
	BillingTriennial  BillingCycle = "Triennially"
	BillingOneTime    BillingCycle = "One-time"
)

func ParseBillingCycle(s string) (BillingCycle, bool) {
	switch c := BillingCycle(s); c {
	case BillingMonthly, BillingQuarterly, BillingSemiAnnual, BillingAnnual,
		BillingBiennial, BillingTriennial, BillingOneTime:
		return c, true
	}
	return "", false
}

// RenewalStatus is the state of a ledger entry.
type RenewalStatus string

const (
	RenewalPending   RenewalStatus = "Pending"
	RenewalCompleted RenewalStatus = "Completed"
	RenewalFailed    RenewalStatus = "Failed"
)

func ParseRenewalStatus(s string) (RenewalStatus, bool) {
	switch st := RenewalStatus(s); st {
	case RenewalPending, RenewalCompleted, RenewalFailed:
		return st, true
	}
	return "", false
}
