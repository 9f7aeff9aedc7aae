// Package browser drives an authenticated browser tab. Page is the capability
// the rest of the pipeline depends on; Session implements it with chromedp.
package browser

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Page is a single browser tab that is navigated, queried and typed into.
// Query methods (Exists, Text) inspect the current document immediately;
// Wait methods poll until the selector is visible or the timeout expires.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Exists(ctx context.Context, selector string) (bool, error)
	Text(ctx context.Context, selector string) (string, bool, error)
	Type(ctx context.Context, selector, text string, perCharDelay time.Duration) error
	Click(ctx context.Context, selector string) error
	ClickAndWaitNavigation(ctx context.Context, selector string, timeout time.Duration) error
	Evaluate(ctx context.Context, script string, out any) error
	HTML(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)
	Close() error
}

// ErrTimeout is returned when a wait exceeds its bound.
var ErrTimeout = eris.New("browser: timed out")

// ScrollToBottomScript scrolls the document to its end so lazily rendered
// sections load. It evaluates to true.
const ScrollToBottomScript = `window.scrollTo(0, document.body.scrollHeight); true`

// Settle blocks for d or until ctx is done.
func Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
