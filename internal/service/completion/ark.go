package completion

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/research-partner/backend/internal/config"
)

// arkClient runs a two message eino chain against a Volcengine Ark model.
type arkClient struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

func newArkClient(ctx context.Context, cfg config.AIConfig) (*arkClient, error) {
	apiKey := cfg.Credential()
	if cfg.Model == "" {
		return nil, setupErr(config.ProviderArk, "AI_MODEL is required for Ark")
	}
	if apiKey == "" && (cfg.AccessKey == "" || cfg.SecretKey == "") {
		return nil, setupErr(config.ProviderArk, "Ark 凭证缺失，至少提供 ARK_API_KEY 或 AK/SK 组合")
	}

	var temperature *float32
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		temperature = &val
	}

	var topP *float32
	if cfg.TopP != nil {
		val := float32(*cfg.TopP)
		topP = &val
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://ark.cn-beijing.volces.com/api/v3"
	}

	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     baseURL,
		Region:      cfg.Region,
		APIKey:      apiKey,
		AccessKey:   cfg.AccessKey,
		SecretKey:   cfg.SecretKey,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
	if err != nil {
		return nil, &SetupError{Provider: config.ProviderArk, Err: err}
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{transcript}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, &SetupError{Provider: config.ProviderArk, Err: fmt.Errorf("failed to compile chat chain: %w", err)}
	}

	return &arkClient{chain: runnable}, nil
}

func (c *arkClient) Complete(ctx context.Context, p Prompt) (string, error) {
	response, err := c.chain.Invoke(ctx, map[string]any{
		"system":     p.System,
		"transcript": p.Transcript,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}
	if response == nil {
		return "", nil
	}
	return response.Content, nil
}
