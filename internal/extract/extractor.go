// Package extract pulls a name and bio out of a rendered profile page.
package extract

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/browser"
	"github.com/sells-group/lead-cli/internal/model"
)

// Config bounds the waits used while reading a profile.
type Config struct {
	NavigateTimeout time.Duration
	NameTimeout     time.Duration
	SettleDelay     time.Duration
	NameSelector    string
}

// Extractor reads profiles. The zero value is not usable; call New.
type Extractor struct {
	cfg        Config
	strategies []Strategy
}

// New returns an Extractor using strategies, or DefaultStrategies when none
// are given.
func New(cfg Config, strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	if cfg.NameSelector == "" {
		cfg.NameSelector = ".text-heading-xlarge"
	}
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = 20 * time.Second
	}
	if cfg.NameTimeout <= 0 {
		cfg.NameTimeout = 20 * time.Second
	}
	return &Extractor{cfg: cfg, strategies: strategies}
}

// Extract loads url and returns its name and bio. Fields that cannot be found
// hold the model sentinels; failures are logged, never returned.
func (e *Extractor) Extract(ctx context.Context, page browser.Page, url string) model.ExtractedProfile {
	log := zap.L().With(zap.String("url", url))
	profile := model.ExtractedProfile{Name: model.NameNotFound, Bio: model.BioNotFound}

	if err := page.Navigate(ctx, url, e.cfg.NavigateTimeout); err != nil {
		log.Warn("extract: navigation failed", zap.Error(err))
		return profile
	}

	if err := page.WaitVisible(ctx, e.cfg.NameSelector, e.cfg.NameTimeout); err != nil {
		log.Warn("extract: name element not visible", zap.Error(err))
	} else if text, found, err := page.Text(ctx, e.cfg.NameSelector); err != nil {
		log.Warn("extract: read name failed", zap.Error(err))
	} else if name := SanitizeName(text); found && name != "" {
		profile.Name = name
	}

	var scrolled bool
	if err := page.Evaluate(ctx, browser.ScrollToBottomScript, &scrolled); err != nil {
		log.Debug("extract: scroll failed", zap.Error(err))
	}
	if err := browser.Settle(ctx, e.cfg.SettleDelay); err != nil {
		log.Warn("extract: interrupted while settling", zap.Error(err))
		return profile
	}

	if bio, strategy, ok := Chain(ctx, page, e.strategies); ok {
		profile.Bio = bio
		log.Debug("extract: bio found", zap.String("strategy", strategy), zap.Int("length", len(bio)))
	} else {
		log.Info("extract: no bio strategy matched")
	}

	return profile
}
