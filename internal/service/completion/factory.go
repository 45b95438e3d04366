package completion

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zhouzirui/research-partner/backend/internal/config"
)

// NewClient builds the configured provider client. Any error matches ErrSetup.
func NewClient(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (Client, error) {
	var (
		provider Client
		err      error
	)

	switch cfg.Provider {
	case config.ProviderGemini:
		provider, err = newGeminiClient(ctx, cfg)
	case config.ProviderArk:
		provider, err = newArkClient(ctx, cfg)
	case config.ProviderOpenAI:
		provider, err = newOpenAIClient(cfg)
	case config.ProviderAnthropic:
		provider, err = newAnthropicClient(cfg)
	default:
		return nil, &SetupError{Provider: cfg.Provider, Err: fmt.Errorf("unknown provider %q", cfg.Provider)}
	}
	if err != nil {
		return nil, err
	}

	return newInstrumented(cfg.Provider, provider, cfg.Timeout, logger), nil
}
