package lifecycle

// Recipient is a party the notifier must reach for an expiry reminder.
type Recipient string

const (
	RecipientServiceOwner   Recipient = "ServiceOwner"
	RecipientAccountManager Recipient = "AccountManager"
	RecipientTechnicalTeam  Recipient = "TechnicalTeam"
)

// AlertThreshold is one row of the reminder policy.
type AlertThreshold struct {
	DaysBeforeExpiry int         `json:"days_before_expiry"`
	Urgency          Urgency     `json:"urgency"`
	Recipients       []Recipient `json:"recipients"`
}

var alertDays = []int{30, 15, 7, 1, 0}

// AlertSchedule returns the fixed reminder policy, furthest threshold first.
// The notifier consumes it; delivery is not implemented here.
func AlertSchedule() []AlertThreshold {
	out := make([]AlertThreshold, 0, len(alertDays))
	for _, d := range alertDays {
		out = append(out, AlertThreshold{
			DaysBeforeExpiry: d,
			Urgency:          ClassifyUrgency(d),
			Recipients:       []Recipient{RecipientServiceOwner, RecipientAccountManager, RecipientTechnicalTeam},
		})
	}
	return out
}

// ThresholdFor returns the schedule row matching days exactly.
func ThresholdFor(days int) (AlertThreshold, bool) {
	for _, t := range AlertSchedule() {
		if t.DaysBeforeExpiry == days {
			return t, true
		}
	}
	return AlertThreshold{}, false
}

// AlertDays lists the thresholds in days.
func AlertDays() []int {
	out := make([]int, len(alertDays))
	copy(out, alertDays)
	return out
}
