package lifecycle

import "time"

// RenewalLeadDays is how far ahead of expiry the default renewal date sits.
const RenewalLeadDays = 30

// Urgency buckets a days-until-expiry value.
type Urgency string

const (
	UrgencyExpired  Urgency = "Expired"
	UrgencyCritical Urgency = "Critical"
	UrgencyWarning  Urgency = "Warning"
	UrgencyNormal   Urgency = "Normal"
)

const (
	criticalDays = 7
	warningDays  = 30
)

// Date truncates t to its calendar day in UTC. All service dates are stored
// in this form so day arithmetic never depends on the server time zone.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DefaultRenewalDate is used whenever a caller does not supply a renewal date.
func DefaultRenewalDate(expiry time.Time) time.Time {
	return Date(expiry).AddDate(0, 0, -RenewalLeadDays)
}

// DaysUntilExpiry is the calendar-day difference between today and expiry.
// Negative values mean the service expired that many days ago. The value is
// derived on every read and never persisted.
func DaysUntilExpiry(expiry, today time.Time) int {
	return int(Date(expiry).Sub(Date(today)).Hours() / 24)
}

// ClassifyUrgency buckets days: <0 Expired, 0..7 Critical, 8..30 Warning,
// >30 Normal. Alert scheduling depends on these exact boundaries.
func ClassifyUrgency(days int) Urgency {
	switch {
	case days < 0:
		return UrgencyExpired
	case days <= criticalDays:
		return UrgencyCritical
	case days <= warningDays:
		return UrgencyWarning
	default:
		return UrgencyNormal
	}
}

// ExtendExpiry moves expiry by whole calendar years, keeping day and month.
// A day that does not exist in the target month is clamped to the month's
// last day, so Feb 29 2024 + 1 year is Feb 28 2025.
func ExtendExpiry(expiry time.Time, years int) time.Time {
	d := Date(expiry)
	y := d.Year() + years
	day := d.Day()
	if last := daysIn(d.Month(), y); day > last {
		day = last
	}
	return time.Date(y, d.Month(), day, 0, 0, 0, 0, time.UTC)
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
