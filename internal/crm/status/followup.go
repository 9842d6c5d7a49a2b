package status

import "time"

const day = 24 * time.Hour

// Urgency is the follow-up classification derived from the last contact.
type Urgency string

const (
	UrgencyContactedToday Urgency = "contacted_today"
	UrgencyNormal         Urgency = "normal"
	UrgencyWarning        Urgency = "warning"
	UrgencyUrgent         Urgency = "urgent"
)

func (u Urgency) Rank() int {
	switch u {
	case UrgencyNormal:
		return 1
	case UrgencyWarning:
		return 2
	case UrgencyUrgent:
		return 3
	default:
		return 0
	}
}

type FollowUp struct {
	Urgency       Urgency `json:"urgency"`
	DaysUntracked int     `json:"days_untracked"`
}

// FollowUpAt classifies how long a customer has gone without contact.
func FollowUpAt(lastTracked, now time.Time) FollowUp {
	days := DaysSince(lastTracked, now)
	switch {
	case days <= 0:
		return FollowUp{Urgency: UrgencyContactedToday, DaysUntracked: days}
	case days <= 3:
		return FollowUp{Urgency: UrgencyNormal, DaysUntracked: days}
	case days <= 14:
		return FollowUp{Urgency: UrgencyWarning, DaysUntracked: days}
	default:
		return FollowUp{Urgency: UrgencyUrgent, DaysUntracked: days}
	}
}

// DaysSince returns whole elapsed days, floored. Clock skew that puts t in the
// future yields 0.
func DaysSince(t, now time.Time) int {
	elapsed := now.Sub(t)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / day)
}
