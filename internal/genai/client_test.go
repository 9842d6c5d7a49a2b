package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path   string
	APIKey string
	Body   map[string]any
}

func newTestClient(t *testing.T, status int, body string) (*GeminiClient, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		_ = json.NewDecoder(r.Body).Decode(&payload)
		captured = append(captured, capturedRequest{Path: r.URL.Path, APIKey: r.Header.Get("x-goog-api-key"), Body: payload})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := NewGeminiClient(context.Background(), GeminiConfig{
		APIKey:      "test-key",
		Temperature: 0.8,
		Timeout:     5 * time.Second,
		BaseURL:     srv.URL,
		HTTPClient:  srv.Client(),
	})
	require.NoError(t, err)
	return c, &captured
}

func TestGenerateText(t *testing.T) {
	c, captured := newTestClient(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"sisters!"}]}}]}`)

	text, err := c.GenerateText(context.Background(), TextRequest{
		Prompt:   "spring dress",
		Model:    ModelDeepSeek,
		Platform: domain.PlatformXiaohongshu,
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello sisters!", text)

	require.Len(t, *captured, 1)
	req := (*captured)[0]
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", req.Path)
	assert.Equal(t, "test-key", req.APIKey)

	sys := req.Body["systemInstruction"].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)
	assert.Contains(t, sys, "Xiaohongshu")
	assert.Contains(t, sys, "DeepSeek-V3")
	assert.InDelta(t, 0.8, req.Body["generationConfig"].(map[string]any)["temperature"].(float64), 1e-6)

	snap := c.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.Calls)
	assert.Equal(t, int64(0), snap.Errors)
}

func TestGenerateText_EmptyResponse(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"candidates":[]}`)

	_, err := c.GenerateText(context.Background(), TextRequest{Prompt: "x", Model: ModelGemini, Platform: domain.PlatformXianyu})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestGenerateImage(t *testing.T) {
	c, captured := newTestClient(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"here you go"},{"inlineData":{"mimeType":"image/png","data":"iVBORw0KGgo="}}]}}]}`)

	uri, err := c.GenerateImage(context.Background(), "a cup of tea", StyleJimeng)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", uri)

	req := (*captured)[0]
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash-image:generateContent", req.Path)
	prompt := req.Body["contents"].([]any)[0].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"].(string)
	assert.Equal(t, "a cup of tea, dreamy, artistic, soft lighting, creative composition, 4k resolution, cinematic", prompt)
	assert.ElementsMatch(t, []any{"TEXT", "IMAGE"}, req.Body["generationConfig"].(map[string]any)["responseModalities"])
}

func TestGenerateImage_NoInlineData(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`)

	_, err := c.GenerateImage(context.Background(), "x", StyleDefault)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"code":401,"message":"no","status":"UNAUTHENTICATED"}}`, domain.ErrUnauthenticated},
		{"forbidden", http.StatusForbidden, `{"error":{"code":403,"message":"no","status":"PERMISSION_DENIED"}}`, domain.ErrUnauthenticated},
		{"bad key", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`, domain.ErrUnauthenticated},
		{"server error", http.StatusInternalServerError, `{"error":{"code":500,"message":"boom"}}`, domain.ErrServiceUnavailable},
		{"quota", http.StatusTooManyRequests, `{"error":{"code":429,"message":"slow down"}}`, domain.ErrServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, captured := newTestClient(t, tt.status, tt.body)
			_, err := c.GenerateText(context.Background(), TextRequest{Prompt: "x", Model: ModelGemini, Platform: domain.PlatformXianyu})
			assert.ErrorIs(t, err, tt.want)
			assert.Len(t, *captured, 1, "errors are not retried")
			assert.Equal(t, int64(1), c.Metrics().Snapshot().Errors)
		})
	}
}

func TestUnconfiguredClient(t *testing.T) {
	c, err := NewGeminiClient(context.Background(), GeminiConfig{})
	require.NoError(t, err)
	assert.False(t, c.Configured())

	_, err = c.GenerateText(context.Background(), TextRequest{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = c.GenerateImage(context.Background(), "x", StyleDefault)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestCancelledContext(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, `{}`)
	c.limiter.SetLimit(0.001)
	c.limiter.SetBurst(1)
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.GenerateText(ctx, TextRequest{Prompt: "x", Model: ModelGemini, Platform: domain.PlatformXianyu})
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}
