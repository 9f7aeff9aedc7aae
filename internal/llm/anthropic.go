package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/pkg/anthropic"
)

// Anthropic completes prompts through the Messages API.
type Anthropic struct {
	client anthropic.Client
}

// NewAnthropic creates an Anthropic-backed client. SDK retries are disabled
// because callers run their own retry policy.
func NewAnthropic(cfg Config) *Anthropic {
	opts := []anthropic.Option{anthropic.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return &Anthropic{client: anthropic.NewClient(cfg.APIKey, opts...)}
}

// NewAnthropicFromClient wraps an existing API client.
func NewAnthropicFromClient(c anthropic.Client) *Anthropic {
	return &Anthropic{client: c}
}

// Complete implements Client.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 256
	}
	temp := req.Temperature

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	})
	if err != nil {
		return "", markTransient(eris.Wrap(err, "llm: anthropic"), anthropic.StatusCode(err))
	}
	resp.Usage.LogCost(req.Model, req.Purpose)

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
