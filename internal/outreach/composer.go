// Package outreach writes and sends connection requests to high-scoring leads.
package outreach

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/llm"
)

// ComposePrompt is the system prompt for the connection note.
const ComposePrompt = "Generate a concise LinkedIn connection request (max 300 characters) for a startup founder using LinkWise (Superland). " +
	"Personalize with name, bio, and angelScore (0-10). Highlight investment opportunities, keep tone enthusiastic yet respectful."

// DefaultFallbackTemplate is used when no template is configured. {name} is
// replaced with the lead's name.
const DefaultFallbackTemplate = "Hi {name}, I'm with LinkWise (Superland) and admire your expertise. Let's connect to explore investment opportunities!"

// ComposerConfig controls note generation.
type ComposerConfig struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	MaxLength        int
	FallbackTemplate string
}

// Composer writes personalised connection notes.
type Composer struct {
	client llm.Client
	cfg    ComposerConfig
}

// NewComposer returns a Composer. A nil client always yields the fallback.
func NewComposer(client llm.Client, cfg ComposerConfig) *Composer {
	if cfg.MaxLength <= 0 {
		cfg.MaxLength = 300
	}
	if cfg.FallbackTemplate == "" {
		cfg.FallbackTemplate = DefaultFallbackTemplate
	}
	return &Composer{client: client, cfg: cfg}
}

// Compose returns a note of at most MaxLength characters. Any failure yields
// the fallback template.
func (c *Composer) Compose(ctx context.Context, bio, name string, angelScore float64) string {
	if c.client == nil {
		return c.Fallback(name)
	}

	text, err := c.client.Complete(ctx, llm.Request{
		Purpose:     "compose",
		Model:       c.cfg.Model,
		System:      ComposePrompt,
		Prompt:      fmt.Sprintf("Name: %s, Bio: %s, AngelScore: %s", name, bio, strconv.FormatFloat(angelScore, 'f', -1, 64)),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		zap.L().Warn("outreach: compose failed, using fallback", zap.String("name", name), zap.Error(err))
		return c.Fallback(name)
	}

	text = strings.TrimSpace(strings.Trim(strings.TrimSpace(text), `"`))
	if text == "" {
		return c.Fallback(name)
	}
	return truncateRunes(text, c.cfg.MaxLength)
}

// Fallback renders the static template for name.
func (c *Composer) Fallback(name string) string {
	return truncateRunes(strings.ReplaceAll(c.cfg.FallbackTemplate, "{name}", name), c.cfg.MaxLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
