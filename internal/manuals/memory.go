package manuals

import (
	"context"
	"sync"

	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
)

type MemoryRepository struct {
	mu       sync.RWMutex
	sections map[string]domain.ManualSection
}

// NewMemoryRepository returns a repository holding the given sections.
func NewMemoryRepository(seed []domain.ManualSection) *MemoryRepository {
	r := &MemoryRepository{sections: make(map[string]domain.ManualSection, len(seed))}
	for _, s := range seed {
		r.sections[s.ID] = s
	}
	return r
}

func (r *MemoryRepository) ListByPlatform(_ context.Context, platform domain.Platform) ([]domain.ManualSection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ManualSection, 0)
	for _, s := range r.sections {
		if s.Platform == platform {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Upsert(_ context.Context, s domain.ManualSection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sections[s.ID] = s
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sections, id)
	return nil
}
