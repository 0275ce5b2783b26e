package lifecycle

import (
	"time"

	"portal/internal/app/apperr"
)

// Trigger names what is asking for a status change.
type Trigger int

const (
	// TriggerOperator is an explicit activate/suspend/cancel action.
	TriggerOperator Trigger = iota
	// TriggerExpiry is the derived move to Expired once the expiry date passed.
	TriggerExpiry
	// TriggerRenewal is a renewal that extends the expiry date.
	TriggerRenewal
)

func (t Trigger) String() string {
	switch t {
	case TriggerOperator:
		return "operator"
	case TriggerExpiry:
		return "expiry"
	case TriggerRenewal:
		return "renewal"
	}
	return "unknown"
}

type edge struct {
	from, to Status
	trigger  Trigger
}

var transitions = map[edge]bool{
	{StatusPending, StatusActive, TriggerOperator}:      true,
	{StatusActive, StatusSuspended, TriggerOperator}:    true,
	{StatusSuspended, StatusActive, TriggerOperator}:    true,
	{StatusActive, StatusCancelled, TriggerOperator}:    true,
	{StatusSuspended, StatusCancelled, TriggerOperator}: true,
	{StatusPending, StatusCancelled, TriggerOperator}:   true,

	{StatusActive, StatusExpired, TriggerExpiry}:    true,
	{StatusSuspended, StatusExpired, TriggerExpiry}: true,

	{StatusPending, StatusActive, TriggerRenewal}:   true,
	{StatusActive, StatusActive, TriggerRenewal}:    true,
	{StatusSuspended, StatusActive, TriggerRenewal}: true,
	{StatusExpired, StatusActive, TriggerRenewal}:   true,
}

// CanTransition reports whether (from, to) is a legal move for trigger.
func CanTransition(from, to Status, trigger Trigger) bool {
	return transitions[edge{from, to, trigger}]
}

// Transition validates a move and returns an InvalidTransition error carrying
// both states when it is not allowed. Terminal states reject everything.
func Transition(from, to Status, trigger Trigger) error {
	if from.IsTerminal() || !CanTransition(from, to, trigger) {
		return apperr.InvalidTransition(string(from), string(to))
	}
	return nil
}

// EffectiveStatus is the status reads must report. A stored Active or
// Suspended row whose expiry date has passed is Expired regardless of the
// column, which is only corrected when a mutating operation touches the row.
func EffectiveStatus(stored Status, expiry, today time.Time) Status {
	if (stored == StatusActive || stored == StatusSuspended) && DaysUntilExpiry(expiry, today) < 0 {
		return StatusExpired
	}
	return stored
}
