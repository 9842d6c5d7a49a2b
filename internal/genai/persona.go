package genai

import (
	"strings"

	"github.com/hongyu-crm/crm-backend/internal/crm/domain"
)

// TextModel is the copywriting persona the user picks. Every persona is
// served by the same backend model; only the system instruction differs.
type TextModel string

const (
	ModelDeepSeek TextModel = "deepseek"
	ModelGemini   TextModel = "gemini"
	ModelDoubao   TextModel = "doubao"
	ModelWenxin   TextModel = "wenxin"
	ModelQwen     TextModel = "qwen"
	ModelChatGPT  TextModel = "chatgpt"
)

var textModelNames = map[TextModel]string{
	ModelDeepSeek: "DeepSeek",
	ModelGemini:   "Gemini",
	ModelDoubao:   "Doubao",
	ModelWenxin:   "Wenxin Yiyan",
	ModelQwen:     "Tongyi Qianwen",
	ModelChatGPT:  "ChatGPT",
}

// DisplayName is the label stored as Copywriting.ModelUsed.
func (m TextModel) DisplayName() string {
	if n, ok := textModelNames[m]; ok {
		return n
	}
	return string(m)
}

// ParseTextModel accepts a key or a display name, case-insensitively.
// Empty selects Gemini.
func ParseTextModel(s string) (TextModel, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModelGemini, true
	}
	for m, name := range textModelNames {
		if strings.EqualFold(s, string(m)) || strings.EqualFold(s, name) {
			return m, true
		}
	}
	return "", false
}

// ImageStyle selects the prompt suffix used for image generation.
type ImageStyle string

const (
	StyleDefault ImageStyle = ""
	StyleDoubao  ImageStyle = "doubao"
	StyleJimeng  ImageStyle = "jimeng"
)

func ParseImageStyle(s string) (ImageStyle, bool) {
	switch ImageStyle(strings.ToLower(strings.TrimSpace(s))) {
	case StyleDefault:
		return StyleDefault, true
	case StyleDoubao:
		return StyleDoubao, true
	case StyleJimeng:
		return StyleJimeng, true
	}
	return "", false
}

// BuildSystemInstruction composes the platform tone and the model persona.
func BuildSystemInstruction(platform domain.Platform, model TextModel) string {
	var b strings.Builder
	b.WriteString("You are a professional social media operations expert for ")
	b.WriteString(platform.DisplayName())
	b.WriteString(". ")

	if platform == domain.PlatformXiaohongshu {
		b.WriteString("Use emojis liberally. Tone should be excited and sharing, like recommending to close friends. Sound authentic. Use tags.")
	} else {
		b.WriteString("Tone should be direct, efficient, value-for-money and trustworthy. Focus on product condition and price.")
	}

	switch model {
	case ModelGemini:
	case ModelDeepSeek:
		b.WriteString(" You are simulating the DeepSeek-V3 model. Be extremely logical, deep and structured in your reasoning, yet creative in output. Optimize for high engagement and conversion.")
	default:
		b.WriteString(" Simulate the writing style of the ")
		b.WriteString(model.DisplayName())
		b.WriteString(" AI model.")
	}
	return b.String()
}

// EnhanceImagePrompt appends the style keywords to a user prompt.
func EnhanceImagePrompt(prompt string, style ImageStyle) string {
	switch style {
	case StyleDoubao:
		return prompt + ", highly detailed, vibrant colors, asian aesthetic, social media style, high quality, commercial photography"
	case StyleJimeng:
		return prompt + ", dreamy, artistic, soft lighting, creative composition, 4k resolution, cinematic"
	default:
		return prompt + ", professional photography, high resolution"
	}
}
