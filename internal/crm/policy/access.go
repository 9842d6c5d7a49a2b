// Package policy decides which customer records an actor may read or write
// and who may manage user accounts. All functions are pure.
package policy

import "github.com/hongyu-crm/crm-backend/internal/crm/domain"

// SeesEverything reports whether the actor's visibility is unrestricted.
// Super admins always see everything whatever their stored flag says.
func SeesEverything(actor domain.User) bool {
	return actor.IsSuperAdmin() || actor.CanViewAll
}

// CanSee reports whether a single record is visible to the actor.
func CanSee(actor domain.User, c domain.Customer) bool {
	return SeesEverything(actor) || c.CreatorID == actor.ID
}

// VisibleCustomers returns the subset of all the actor may read, in source
// order. The input slice is never modified.
func VisibleCustomers(actor domain.User, all []domain.Customer) []domain.Customer {
	if SeesEverything(actor) {
		return append(make([]domain.Customer, 0, len(all)), all...)
	}

	out := make([]domain.Customer, 0, len(all))
	for _, c := range all {
		if c.CreatorID == actor.ID {
			out = append(out, c)
		}
	}
	return out
}

// CanWrite permits a save or delete iff the record is visible to the actor.
// There is no version check: two permitted writers race and the last one wins.
func CanWrite(actor domain.User, c domain.Customer) bool {
	return len(VisibleCustomers(actor, []domain.Customer{c})) == 1
}

// CanManageUsers is true only for the super admin.
func CanManageUsers(actor domain.User) bool {
	return actor.IsSuperAdmin()
}

// Effective returns u with CanViewAll reflecting the actor's real visibility.
func Effective(u domain.User) domain.User {
	if u.IsSuperAdmin() {
		u.CanViewAll = true
	}
	return u
}
