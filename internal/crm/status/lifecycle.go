package status

import "time"

const week = 7 * 24 * time.Hour

// Stage is the lifecycle classification of a customer's deal.
type Stage string

const (
	StageProspect   Stage = "prospect"
	StageOnboarding Stage = "onboarding"
	StageStable     Stage = "stable"
	StageRenewalDue Stage = "renewal_due"
	StageExpired    Stage = "expired"
)

// Rank orders stages by elapsed time since the deal.
func (s Stage) Rank() int {
	switch s {
	case StageOnboarding:
		return 1
	case StageStable:
		return 2
	case StageRenewalDue:
		return 3
	case StageExpired:
		return 4
	default:
		return 0
	}
}

// Lifecycle is the derived deal stage plus the week count it was derived from.
// Weeks is zero for prospects.
type Lifecycle struct {
	Stage Stage `json:"stage"`
	Weeks int   `json:"weeks,omitempty"`
}

// LifecycleAt classifies a deal date relative to now. A nil deal date means no
// deal has been closed yet.
func LifecycleAt(dealDate *time.Time, now time.Time) Lifecycle {
	if dealDate == nil {
		return Lifecycle{Stage: StageProspect}
	}

	weeks := WeeksSince(*dealDate, now)
	switch {
	case weeks <= 2:
		return Lifecycle{Stage: StageOnboarding, Weeks: weeks}
	case weeks <= 8:
		return Lifecycle{Stage: StageStable, Weeks: weeks}
	case weeks <= 12:
		return Lifecycle{Stage: StageRenewalDue, Weeks: weeks}
	default:
		return Lifecycle{Stage: StageExpired, Weeks: weeks}
	}
}

// WeeksSince returns the ceiling of the elapsed time in weeks, so any part of
// a week counts as a whole one. Deals dated now or in the future are week 1.
func WeeksSince(t, now time.Time) int {
	elapsed := now.Sub(t)
	if elapsed <= 0 {
		return 1
	}
	weeks := int(elapsed / week)
	if elapsed%week != 0 {
		weeks++
	}
	return weeks
}
