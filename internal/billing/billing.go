// Package billing evaluates trial/premium entitlement. Checkout and the
// billing portal live with the external payment provider; this package
// only interprets the mirrored subscription record.
package billing

import (
	"time"

	"github.com/gmsas95/dosetrack/internal/store"
)

// DefaultTrialDays is the trial length when config does not override it.
const DefaultTrialDays = 7

// Entitlement is the resolved access level for a user.
type Entitlement struct {
	Premium     bool      `json:"premium"`
	Trialing    bool      `json:"trialing"`
	TrialEndsAt time.Time `json:"trial_ends_at"`
}

// Evaluate resolves entitlement from the user record and the mirrored
// subscription row (nil when the user never started checkout). Premium
// means an active or trialing subscription; otherwise the user is on the
// local trial clock that starts at account creation.
func Evaluate(user *store.User, sub *store.Subscription, now time.Time, trialDays int) Entitlement {
	if trialDays <= 0 {
		trialDays = DefaultTrialDays
	}

	ent := Entitlement{
		TrialEndsAt: user.CreatedAt.AddDate(0, 0, trialDays),
	}

	if sub != nil && (sub.Status == store.SubActive || sub.Status == store.SubTrialing) {
		ent.Premium = true
		return ent
	}

	ent.Trialing = now.Before(ent.TrialEndsAt)
	return ent
}

// CanNavigateCalendar reports whether the user may browse months other
// than the current one. Free users with an expired trial are pinned to
// the current month.
func (e Entitlement) CanNavigateCalendar() bool {
	return e.Premium || e.Trialing
}
