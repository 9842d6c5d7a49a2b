package repository

import (
	"context"
	"sync"

	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
)

// MemoryStore keeps everything in process memory. State is lost on restart.
type MemoryStore struct {
	mu sync.RWMutex

	users     map[string]domain.User
	userOrder []string

	customers     map[string]domain.Customer
	customerOrder []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		customers: make(map[string]domain.Customer),
	}
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.User, 0, len(m.userOrder))
	for _, id := range m.userOrder {
		out = append(out, m.users[id])
	}
	return out, nil
}

func (m *MemoryStore) GetUser(_ context.Context, id string) (domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) InsertUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == u.Username {
			return domain.ErrDuplicateUsername
		}
	}
	if _, ok := m.users[u.ID]; !ok {
		m.userOrder = append(m.userOrder, u.ID)
	}
	m.users[u.ID] = u
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return nil
	}
	delete(m.users, id)
	m.userOrder = removeID(m.userOrder, id)
	return nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, id string, patch domain.UserPatch) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	u = applyPatch(u, patch)
	m.users[id] = u
	return u, nil
}

func (m *MemoryStore) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Customer, 0, len(m.customerOrder))
	for _, id := range m.customerOrder {
		out = append(out, m.customers[id].Clone())
	}
	return out, nil
}

func (m *MemoryStore) GetCustomer(_ context.Context, id string) (domain.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrNotFound
	}
	return c.Clone(), nil
}

func (m *MemoryStore) UpsertCustomer(_ context.Context, c domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[c.ID]; !ok {
		m.customerOrder = append(m.customerOrder, c.ID)
	}
	m.customers[c.ID] = c.Clone()
	return nil
}

func (m *MemoryStore) DeleteCustomer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.customers[id]; !ok {
		return nil
	}
	delete(m.customers, id)
	m.customerOrder = removeID(m.customerOrder, id)
	return nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
