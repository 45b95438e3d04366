package completion

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/research-partner/backend/internal/logging"
)

// Prompt is one completion request. System carries the system prompt on the
// provider's dedicated channel; Transcript is the formatted conversation.
type Prompt struct {
	System     string
	Transcript string
}

// Client turns a prompt into generated text. A call is synchronous and made at
// most once; failures match ErrCompletion.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt Prompt) (string, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, prompt Prompt) (string, error) {
	return f(ctx, prompt)
}

// instrumented applies the optional timeout, logs each call and normalizes
// provider errors into CompletionError.
type instrumented struct {
	provider string
	next     Client
	timeout  time.Duration
	logger   *zap.Logger
}

func newInstrumented(provider string, next Client, timeout time.Duration, logger *zap.Logger) *instrumented {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &instrumented{
		provider: provider,
		next:     next,
		timeout:  timeout,
		logger:   logger.Named("completion").With(zap.String("provider", provider)),
	}
}

func (c *instrumented) Complete(ctx context.Context, prompt Prompt) (string, error) {
	defer logging.Duration(ctx, c.logger, "complete")()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.next.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("completion failed", zap.Error(err), zap.Int("transcript_len", len(prompt.Transcript)))
		var completionErr *CompletionError
		if errors.As(err, &completionErr) {
			return "", err
		}
		return "", &CompletionError{Provider: c.provider, Err: err}
	}

	if strings.TrimSpace(text) == "" {
		c.logger.Warn("completion returned empty text")
		return "", &CompletionError{Provider: c.provider, Err: errors.New("empty response")}
	}

	c.logger.Info("completion succeeded",
		zap.Int("transcript_len", len(prompt.Transcript)),
		zap.Int("reply_len", len(text)),
	)
	return text, nil
}
