package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/hongyu-crm/crm-backend/internal/genai"
	"github.com/rs/zerolog"
)

// GenerationService asks the generator for copy or images and attaches the
// result to a customer. A failed or abandoned call leaves the customer as it
// was.
type GenerationService struct {
	customers *CustomerService
	gen       genai.Generator
}

func NewGenerationService(customers *CustomerService, gen genai.Generator) *GenerationService {
	return &GenerationService{customers: customers, gen: gen}
}

func (s *GenerationService) GenerateCopy(ctx context.Context, actor domain.User, id, prompt string, model genai.TextModel) (domain.Copywriting, error) {
	if strings.TrimSpace(prompt) == "" {
		return domain.Copywriting{}, fmt.Errorf("prompt is required: %w", domain.ErrInvalidInput)
	}
	c, err := s.customers.loadForWrite(ctx, actor, id)
	if err != nil {
		return domain.Copywriting{}, err
	}

	text, err := s.gen.GenerateText(ctx, genai.TextRequest{Prompt: prompt, Model: model, Platform: c.Platform})
	if err != nil {
		return domain.Copywriting{}, err
	}
	if err := ctx.Err(); err != nil {
		zerolog.Ctx(ctx).Info().Str("customer_id", id).Msg("generated copy discarded, request cancelled")
		return domain.Copywriting{}, err
	}

	cw := domain.Copywriting{
		ID:            uuid.NewString(),
		Content:       text,
		CreatedAt:     s.customers.clock.Now(),
		IsAIGenerated: true,
		ModelUsed:     model.DisplayName(),
	}
	if err := s.customers.prependCopy(ctx, actor, id, cw); err != nil {
		return domain.Copywriting{}, err
	}
	return cw, nil
}

func (s *GenerationService) GenerateImage(ctx context.Context, actor domain.User, id, prompt string, style genai.ImageStyle) (domain.ImageAsset, error) {
	if strings.TrimSpace(prompt) == "" {
		return domain.ImageAsset{}, fmt.Errorf("prompt is required: %w", domain.ErrInvalidInput)
	}
	if _, err := s.customers.loadForWrite(ctx, actor, id); err != nil {
		return domain.ImageAsset{}, err
	}

	dataURI, err := s.gen.GenerateImage(ctx, prompt, style)
	if err != nil {
		return domain.ImageAsset{}, err
	}
	if err := ctx.Err(); err != nil {
		zerolog.Ctx(ctx).Info().Str("customer_id", id).Msg("generated image discarded, request cancelled")
		return domain.ImageAsset{}, err
	}

	url, err := s.customers.ingest(ctx, id, dataURI)
	if err != nil {
		return domain.ImageAsset{}, fmt.Errorf("generated image rejected: %v: %w", err, domain.ErrServiceUnavailable)
	}

	asset := domain.ImageAsset{
		ID:            uuid.NewString(),
		URL:           url,
		CreatedAt:     s.customers.clock.Now(),
		IsAIGenerated: true,
	}
	if err := s.customers.prependImage(ctx, actor, id, asset); err != nil {
		s.customers.releaseImage(ctx, id, url)
		return domain.ImageAsset{}, err
	}
	return asset, nil
}
