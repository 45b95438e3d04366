package completion

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/zhouzirui/research-partner/backend/internal/config"
)

const defaultGeminiModel = "gemini-1.5-flash"

// geminiClient calls the Gemini API through Google's GenAI SDK.
type geminiClient struct {
	client *genai.Client
	model  string
	base   genai.GenerateContentConfig
}

func newGeminiClient(ctx context.Context, cfg config.AIConfig) (*geminiClient, error) {
	apiKey := cfg.Credential()
	if apiKey == "" {
		return nil, setupErr(config.ProviderGemini, "GEMINI_API_KEY or AI_API_KEY is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, &SetupError{Provider: config.ProviderGemini, Err: err}
	}

	var base genai.GenerateContentConfig
	if cfg.Temperature != nil {
		base.Temperature = genai.Ptr(float32(*cfg.Temperature))
	}
	if cfg.TopP != nil {
		base.TopP = genai.Ptr(float32(*cfg.TopP))
	}
	if cfg.MaxTokens != nil {
		base.MaxOutputTokens = int32(*cfg.MaxTokens)
	}

	return &geminiClient{client: client, model: model, base: base}, nil
}

func (c *geminiClient) Complete(ctx context.Context, prompt Prompt) (string, error) {
	callConfig := c.base
	if prompt.System != "" {
		callConfig.SystemInstruction = genai.NewContentFromText(prompt.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt.Transcript), &callConfig)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
