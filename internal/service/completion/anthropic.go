package completion

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/zhouzirui/research-partner/backend/internal/config"
)

const (
	defaultAnthropicModel     = "claude-3-5-haiku-latest"
	defaultAnthropicMaxTokens = 4096
)

type anthropicClient struct {
	client      *anthropic.Client
	model       string
	maxTokens   int
	temperature *float32
	topP        *float32
}

func newAnthropicClient(cfg config.AIConfig) (*anthropicClient, error) {
	apiKey := cfg.Credential()
	if apiKey == "" {
		return nil, setupErr(config.ProviderAnthropic, "ANTHROPIC_API_KEY or AI_API_KEY is required")
	}

	var opts []anthropic.ClientOption
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}

	c := &anthropicClient{
		client:    anthropic.NewClient(apiKey, opts...),
		model:     cfg.Model,
		maxTokens: defaultAnthropicMaxTokens,
	}
	if c.model == "" {
		c.model = defaultAnthropicModel
	}
	if cfg.MaxTokens != nil {
		c.maxTokens = *cfg.MaxTokens
	}
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		c.temperature = &val
	}
	if cfg.TopP != nil {
		val := float32(*cfg.TopP)
		c.topP = &val
	}
	return c, nil
}

func (c *anthropicClient) Complete(ctx context.Context, p Prompt) (string, error) {
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.model),
		System:      p.System,
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(p.Transcript)},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
	})
	if err != nil {
		return "", fmt.Errorf("create messages: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}
	return text.String(), nil
}
