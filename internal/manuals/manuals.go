// Package manuals serves the per-platform operations knowledge base.
package manuals

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var seedYAML []byte

type seedDocument struct {
	Sections []domain.ManualSection `yaml:"sections"`
}

// DefaultSections returns the built-in sections.
func DefaultSections() ([]domain.ManualSection, error) {
	var doc seedDocument
	if err := yaml.Unmarshal(seedYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse manuals seed: %w", err)
	}
	return doc.Sections, nil
}

// Repository stores manual sections.
type Repository interface {
	ListByPlatform(ctx context.Context, platform domain.Platform) ([]domain.ManualSection, error)
	Upsert(ctx context.Context, s domain.ManualSection) error
	Delete(ctx context.Context, id string) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a platform's sections, guides first, then by id.
func (s *Service) List(ctx context.Context, platform domain.Platform) ([]domain.ManualSection, error) {
	if !platform.Valid() {
		return nil, fmt.Errorf("unknown platform %q: %w", platform, domain.ErrInvalidInput)
	}
	sections, err := s.repo.ListByPlatform(ctx, platform)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(sections, func(i, j int) bool {
		gi, gj := sections[i].Type == domain.SectionGuide, sections[j].Type == domain.SectionGuide
		if gi != gj {
			return gi
		}
		return sections[i].ID < sections[j].ID
	})
	return sections, nil
}

// Upsert validates and stores a section, assigning an id when missing.
func (s *Service) Upsert(ctx context.Context, sec domain.ManualSection) (domain.ManualSection, error) {
	sec.Title = strings.TrimSpace(sec.Title)
	if sec.Title == "" || strings.TrimSpace(sec.Content) == "" {
		return domain.ManualSection{}, fmt.Errorf("title and content are required: %w", domain.ErrInvalidInput)
	}
	if !sec.Platform.Valid() {
		return domain.ManualSection{}, fmt.Errorf("unknown platform %q: %w", sec.Platform, domain.ErrInvalidInput)
	}
	if !sec.Type.Valid() {
		return domain.ManualSection{}, fmt.Errorf("unknown section type %q: %w", sec.Type, domain.ErrInvalidInput)
	}
	if sec.ID == "" {
		sec.ID = uuid.NewString()
	}

	if err := s.repo.Upsert(ctx, sec); err != nil {
		return domain.ManualSection{}, err
	}
	return sec, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
