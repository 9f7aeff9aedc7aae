package extract

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/browser"
)

// Strategy locates the bio on a loaded profile page. It reports false when
// its locator finds nothing usable.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, page browser.Page) (string, bool)
}

// SelectorStrategy reads the text content of the first element matching a
// CSS selector.
type SelectorStrategy struct {
	Label    string
	Selector string
}

// Name implements Strategy.
func (s SelectorStrategy) Name() string { return s.Label }

// Extract implements Strategy.
func (s SelectorStrategy) Extract(ctx context.Context, page browser.Page) (string, bool) {
	text, found, err := page.Text(ctx, s.Selector)
	if err != nil {
		zap.L().Debug("extract: selector query failed", zap.String("strategy", s.Label), zap.Error(err))
		return "", false
	}
	text = CleanText(text)
	return text, found && text != ""
}

// AboutSectionStrategy parses the rendered document and takes the text of the
// section identified as "about", either by its id or by the #about anchor it
// contains. Expanded "see more" text is preferred over the whole section.
type AboutSectionStrategy struct{}

// Name implements Strategy.
func (AboutSectionStrategy) Name() string { return "about-section-html" }

// Extract implements Strategy.
func (AboutSectionStrategy) Extract(ctx context.Context, page browser.Page) (string, bool) {
	html, err := page.HTML(ctx)
	if err != nil {
		zap.L().Debug("extract: read document failed", zap.Error(err))
		return "", false
	}
	return aboutFromHTML(html)
}

func aboutFromHTML(html string) (string, bool) {
	if strings.TrimSpace(html) == "" {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	section := doc.Find(`section[id*="about"]`).First()
	if section.Length() == 0 {
		section = doc.Find("#about").First().Closest("section")
	}
	if section.Length() == 0 {
		return "", false
	}

	if expanded := section.Find(`.inline-show-more-text span[aria-hidden="true"]`).First(); expanded.Length() > 0 {
		if text := CleanText(expanded.Text()); text != "" {
			return text, true
		}
	}
	text := CleanText(section.Text())
	return text, text != ""
}

// DefaultStrategies returns the bio locators in priority order: the current
// and legacy about-summary markups, the generic section text, the about
// section heuristic and finally the headline.
func DefaultStrategies() []Strategy {
	return []Strategy{
		SelectorStrategy{Label: "about-summary", Selector: `div[data-section="about"] .pv-about__summary-text`},
		SelectorStrategy{Label: "legacy-about-summary", Selector: `section.pv-about-section .pv-about__summary-text`},
		SelectorStrategy{Label: "section-info", Selector: `.pv-profile-section__section-info--text`},
		AboutSectionStrategy{},
		SelectorStrategy{Label: "headline", Selector: `.text-body-medium.break-words`},
	}
}

// Chain runs strategies in order and returns the first non-empty result with
// the name of the strategy that produced it.
func Chain(ctx context.Context, page browser.Page, strategies []Strategy) (text, strategy string, ok bool) {
	for _, s := range strategies {
		if ctx.Err() != nil {
			return "", "", false
		}
		if text, ok := s.Extract(ctx, page); ok {
			return text, s.Name(), true
		}
		zap.L().Debug("extract: strategy missed, trying next", zap.String("strategy", s.Name()))
	}
	return "", "", false
}
