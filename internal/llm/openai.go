package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/pkg/openai"
)

// OpenAI completes prompts through the chat completions API.
type OpenAI struct {
	client openai.Client
}

// NewOpenAI creates an OpenAI-backed client.
func NewOpenAI(cfg Config) *OpenAI {
	opts := []openai.Option{openai.WithRateLimit(cfg.RateLimit)}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAI{client: openai.NewClient(cfg.APIKey, opts...)}
}

// NewOpenAIFromClient wraps an existing API client.
func NewOpenAIFromClient(c openai.Client) *OpenAI {
	return &OpenAI{client: c}
}

// Complete implements Client.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	msgs := make([]openai.Message, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, openai.Message{Role: "user", Content: req.Prompt})

	creq := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    msgs,
		Temperature: openai.Float64(req.Temperature),
	}
	if req.MaxTokens > 0 {
		creq.MaxTokens = openai.Int(req.MaxTokens)
	}

	resp, err := o.client.ChatCompletion(ctx, creq)
	if err != nil {
		var se *openai.StatusError
		if errors.As(err, &se) {
			return "", markTransient(eris.Wrap(err, "llm: openai"), se.StatusCode)
		}
		return "", eris.Wrap(err, "llm: openai")
	}

	zap.L().Debug("llm: openai usage",
		zap.String("purpose", req.Purpose),
		zap.String("model", resp.Model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	text := strings.TrimSpace(resp.Content())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
