package status

import (
	"time"

	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
)

// Badges bundles both derived classifications for one customer.
type Badges struct {
	Lifecycle Lifecycle `json:"lifecycle"`
	FollowUp  FollowUp  `json:"follow_up"`
}

// Derive computes both badges for c as of now.
func Derive(c domain.Customer, now time.Time) Badges {
	return Badges{
		Lifecycle: LifecycleAt(c.DealDate, now),
		FollowUp:  FollowUpAt(c.LastTrackedDate, now),
	}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always reports the same instant.
type FixedClock time.Time

func (f FixedClock) Now() time.Time { return time.Time(f) }
