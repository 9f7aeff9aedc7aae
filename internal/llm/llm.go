// Package llm puts the supported chat model providers behind one
// single-turn completion call.
package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/resilience"
)

// Request is a single system + user prompt exchange.
type Request struct {
	// Purpose labels the call in logs, e.g. "score" or "compose".
	Purpose     string
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Client completes a prompt and returns the model's text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrEmptyResponse is returned when the provider answered without any text.
var ErrEmptyResponse = eris.New("llm: empty response")

// Config selects and configures a provider.
type Config struct {
	Provider  string
	APIKey    string
	BaseURL   string
	RateLimit float64
}

// New builds the client for cfg.Provider. Clients holding connections also
// implement io.Closer.
func New(ctx context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, eris.Errorf("llm: %s api key is required", cfg.Provider)
	}
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAI(cfg), nil
	case "anthropic":
		return NewAnthropic(cfg), nil
	case "gemini":
		return NewGemini(ctx, cfg)
	default:
		return nil, eris.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
}

// markTransient wraps err as retryable when status is a rate limit or
// server error.
func markTransient(err error, status int) error {
	if status != 0 && resilience.IsTransientHTTPStatus(status) {
		return resilience.NewTransientError(err, status)
	}
	return err
}
