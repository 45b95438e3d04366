package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/research-partner/backend/internal/config"
)

const defaultOpenAIModel = "gpt-4o-mini"

// openAIClient talks to any OpenAI compatible chat completion endpoint.
type openAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	topP        float32
	maxTokens   int
}

func newOpenAIClient(cfg config.AIConfig) (*openAIClient, error) {
	apiKey := cfg.Credential()
	if apiKey == "" {
		return nil, setupErr(config.ProviderOpenAI, "OPENAI_API_KEY or AI_API_KEY is required")
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	c := &openAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
	if c.model == "" {
		c.model = defaultOpenAIModel
	}
	if cfg.Temperature != nil {
		c.temperature = float32(*cfg.Temperature)
	}
	if cfg.TopP != nil {
		c.topP = float32(*cfg.TopP)
	}
	if cfg.MaxTokens != nil {
		c.maxTokens = *cfg.MaxTokens
	}
	return c, nil
}

func (c *openAIClient) Complete(ctx context.Context, p Prompt) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if p.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: p.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: p.Transcript})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		TopP:        c.topP,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
