// Package genai talks to the generative model backend used for marketing
// copy and product images.
package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	gemini "google.golang.org/genai"
)

// TextRequest describes one copywriting generation.
type TextRequest struct {
	Prompt   string
	Model    TextModel
	Platform domain.Platform
}

// Generator produces copy and images. Errors are domain.ErrUnauthenticated
// or domain.ErrServiceUnavailable; neither is retried.
type Generator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	// GenerateImage returns the image as a data URI.
	GenerateImage(ctx context.Context, prompt string, style ImageStyle) (string, error)
}

type GeminiConfig struct {
	APIKey      string
	TextModel   string
	ImageModel  string
	Temperature float64
	RatePerSec  float64
	Burst       int
	Timeout     time.Duration
	// BaseURL overrides the Gemini API endpoint. Empty uses the default.
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiClient implements Generator on the Gemini Developer API.
type GeminiClient struct {
	client  *gemini.Client
	cfg     GeminiConfig
	limiter *rate.Limiter
	metrics *Metrics
}

// NewGeminiClient builds a client. Without an API key the client is still
// returned, and every call fails with domain.ErrUnauthenticated.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "gemini-2.5-flash-image"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &GeminiClient{
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, burst),
		metrics: &Metrics{},
	}
	if cfg.APIKey == "" {
		return c, nil
	}

	client, err := gemini.NewClient(ctx, &gemini.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     gemini.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: gemini.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	c.client = client
	return c, nil
}

func (c *GeminiClient) Configured() bool { return c.client != nil }

func (c *GeminiClient) Metrics() *Metrics { return c.metrics }

func (c *GeminiClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	temperature := float32(c.cfg.Temperature)
	config := &gemini.GenerateContentConfig{
		SystemInstruction: gemini.NewContentFromText(BuildSystemInstruction(req.Platform, req.Model), gemini.RoleUser),
		Temperature:       &temperature,
	}

	resp, err := c.generate(ctx, c.cfg.TextModel, gemini.Text(req.Prompt), config)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty text response: %w", domain.ErrServiceUnavailable)
	}
	return text, nil
}

func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string, style ImageStyle) (string, error) {
	config := &gemini.GenerateContentConfig{
		ResponseModalities: []string{string(gemini.ModalityText), string(gemini.ModalityImage)},
	}

	resp, err := c.generate(ctx, c.cfg.ImageModel, gemini.Text(EnhanceImagePrompt(prompt, style)), config)
	if err != nil {
		return "", err
	}

	for _, part := range firstParts(resp) {
		if part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return "data:" + part.InlineData.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data), nil
		}
	}
	return "", fmt.Errorf("no image data returned: %w", domain.ErrServiceUnavailable)
}

func (c *GeminiClient) generate(ctx context.Context, model string, contents []*gemini.Content, config *gemini.GenerateContentConfig) (*gemini.GenerateContentResponse, error) {
	if c.client == nil {
		return nil, fmt.Errorf("api key not configured: %w", domain.ErrUnauthenticated)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %v: %w", err, domain.ErrServiceUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	c.metrics.record(time.Since(start), err)

	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("model", model).Msg("generation call failed")
		return nil, classify(err)
	}
	return resp, nil
}

func classify(err error) error {
	var apiErr gemini.APIError
	if errors.As(err, &apiErr) {
		// A bad key comes back as 400 with this message rather than 401.
		badKey := apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "API key not valid")
		if badKey || apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
			return fmt.Errorf("gemini status %d: %w", apiErr.Code, domain.ErrUnauthenticated)
		}
		return fmt.Errorf("gemini status %d: %w", apiErr.Code, domain.ErrServiceUnavailable)
	}
	return fmt.Errorf("gemini: %v: %w", err, domain.ErrServiceUnavailable)
}

func firstParts(resp *gemini.GenerateContentResponse) []*gemini.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}
