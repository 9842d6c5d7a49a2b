// Package repository holds the record store behind the CRM: users and
// customers, keyed by id, with a memory, postgres and redis implementation.
package repository

import (
	"context"

	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
)

// Store persists users and customers. Implementations return records in
// insertion order and never share memory with the caller. Deleting an absent
// id is not an error; reading one returns domain.ErrNotFound.
type Store interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (domain.User, error)
	// InsertUser fails with domain.ErrDuplicateUsername when the username is
	// already taken (exact, case-sensitive match).
	InsertUser(ctx context.Context, u domain.User) error
	DeleteUser(ctx context.Context, id string) error
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (domain.User, error)

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (domain.Customer, error)
	// UpsertCustomer overwrites the whole record. A new id is appended to the
	// end of the listing order; an existing one keeps its position.
	UpsertCustomer(ctx context.Context, c domain.Customer) error
	DeleteCustomer(ctx context.Context, id string) error
}

// FindUserByUsername scans the store for an exact username match.
func FindUserByUsername(ctx context.Context, s Store, username string) (domain.User, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func applyPatch(u domain.User, patch domain.UserPatch) domain.User {
	if patch.CanViewAll != nil {
		u.CanViewAll = *patch.CanViewAll
	}
	return u
}
