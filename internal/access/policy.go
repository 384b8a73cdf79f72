// Package access decides whether a user's plan currently grants premium
// capability (photo and receipt recognition). Read paths never consult it; a
// lapsed user keeps access to their own history.
package access

import (
	"time"

	"github.com/calstars/calories-backend/internal/models"
)

// HasPremium reports whether the user's plan grants premium capability at the
// given instant.
//
// Parse failures on stored plan timestamps grant access. This is an
// intentional business decision favoring the paying user over strict billing
// enforcement; do not tighten it to fail-closed.
func HasPremium(user models.User, now time.Time) bool {
	switch user.Plan {
	case models.PlanPro:
		if user.RenewsAt == "" {
			// No renewal recorded; treat the paid plan as non-expiring.
			return true
		}
		renewsAt, errParse := parseTimestamp(user.RenewsAt)
		if errParse != nil {
			return true
		}
		return now.Before(renewsAt)
	case models.PlanTrial:
		if user.TrialUntil == "" {
			return true
		}
		trialUntil, errParse := parseTimestamp(user.TrialUntil)
		if errParse != nil {
			return true
		}
		return now.Before(trialUntil)
	default:
		return false
	}
}

// TrialDaysLeft returns the whole days remaining on the user's trial, clamped
// at zero. The second result is false when no trial expiry is recorded; an
// unparseable expiry reports zero days.
func TrialDaysLeft(user models.User, now time.Time) (int, bool) {
	if user.TrialUntil == "" {
		return 0, false
	}
	trialUntil, errParse := parseTimestamp(user.TrialUntil)
	if errParse != nil {
		return 0, true
	}
	days := int(trialUntil.Sub(now).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return days, true
}

// parseTimestamp reads a stored plan timestamp, accepting RFC 3339 with or
// without fractional seconds.
func parseTimestamp(value string) (time.Time, error) {
	if ts, errParse := time.Parse(time.RFC3339Nano, value); errParse == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339, value)
}
