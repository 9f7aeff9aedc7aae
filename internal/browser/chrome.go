package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Options configures the Chrome process backing a Session.
type Options struct {
	Headless      bool
	ExecPath      string
	UserDataDir   string
	UserAgent     string
	ActionTimeout time.Duration
}

// Session is a Page backed by a single chromedp tab.
type Session struct {
	tabCtx        context.Context
	cancelTab     context.CancelFunc
	cancelAlloc   context.CancelFunc
	actionTimeout time.Duration
	closeOnce     sync.Once
}

var _ Page = (*Session)(nil)

// NewSession launches Chrome and opens one tab. The browser lives until Close
// is called, independent of ctx.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1440, 900),
	)
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// An empty Run starts the browser process.
	if err := chromedp.Run(tabCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, eris.Wrap(err, "browser: start chrome")
	}

	timeout := opts.ActionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	zap.L().Debug("browser: session started", zap.Bool("headless", opts.Headless))

	return &Session{
		tabCtx:        tabCtx,
		cancelTab:     cancelTab,
		cancelAlloc:   cancelAlloc,
		actionTimeout: timeout,
	}, nil
}

// run executes actions on the tab bounded by timeout and by the caller's ctx.
func (s *Session) run(ctx context.Context, timeout time.Duration, what string, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tctx, actions...); err != nil {
		return classify(err, what)
	}
	return nil
}

func classify(err error, what string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return eris.Wrapf(ErrTimeout, "browser: %s", what)
	}
	return eris.Wrapf(err, "browser: %s", what)
}

// Navigate loads url and waits until at most two connections remain open.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	idle := make(chan struct{}, 1)
	lctx, stopListening := context.WithCancel(tctx)
	defer stopListening()
	chromedp.ListenTarget(lctx, func(ev any) {
		if networkSettled(ev) {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	if err := chromedp.Run(tctx, chromedp.Navigate(url)); err != nil {
		return classify(err, "navigate "+url)
	}

	select {
	case <-idle:
		return nil
	case <-tctx.Done():
		return eris.Wrapf(ErrTimeout, "browser: network idle %s", url)
	}
}

// networkSettled reports whether ev marks the page as loaded. Profile pages
// keep background connections open, so networkIdle may never fire;
// networkAlmostIdle allows up to two.
func networkSettled(ev any) bool {
	e, ok := ev.(*page.EventLifecycleEvent)
	if !ok {
		return false
	}
	return e.Name == "networkAlmostIdle" || e.Name == "networkIdle"
}

// WaitVisible blocks until selector matches a visible element.
func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, "wait visible "+selector, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

type queryResult struct {
	Found bool   `json:"found"`
	Text  string `json:"text"`
}

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func textScript(selector string) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	return el ? {found: true, text: el.textContent || ""} : {found: false, text: ""};
})()`, jsString(selector))
}

func existsScript(selector string) string {
	return fmt.Sprintf(`document.querySelector(%s) !== null`, jsString(selector))
}

// Exists reports whether selector currently matches an element.
func (s *Session) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	err := s.run(ctx, s.actionTimeout, "query "+selector, chromedp.Evaluate(existsScript(selector), &found))
	return found, err
}

// Text returns the text content of the first element matching selector.
func (s *Session) Text(ctx context.Context, selector string) (string, bool, error) {
	var res queryResult
	if err := s.run(ctx, s.actionTimeout, "text "+selector, chromedp.Evaluate(textScript(selector), &res)); err != nil {
		return "", false, err
	}
	return res.Text, res.Found, nil
}

// Type focuses selector and types text one key at a time.
func (s *Session) Type(ctx context.Context, selector, text string, perCharDelay time.Duration) error {
	keys := []rune(text)
	actions := make([]chromedp.Action, 0, 2*len(keys)+1)
	actions = append(actions, chromedp.Focus(selector, chromedp.ByQuery))
	for _, r := range keys {
		actions = append(actions, chromedp.KeyEvent(string(r)))
		if perCharDelay > 0 {
			actions = append(actions, chromedp.Sleep(perCharDelay))
		}
	}
	timeout := s.actionTimeout + time.Duration(len(keys))*perCharDelay
	return s.run(ctx, timeout, "type into "+selector, actions...)
}

// Click clicks the first visible element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	return s.run(ctx, s.actionTimeout, "click "+selector, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

// ClickAndWaitNavigation clicks selector and waits for the resulting
// top-level navigation to complete.
func (s *Session) ClickAndWaitNavigation(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(s.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if _, err := chromedp.RunResponse(tctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return classify(err, "click and wait navigation "+selector)
	}
	return nil
}

// Evaluate runs script and decodes its result into out.
func (s *Session) Evaluate(ctx context.Context, script string, out any) error {
	return s.run(ctx, s.actionTimeout, "evaluate", chromedp.Evaluate(script, out))
}

// HTML returns the rendered document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, s.actionTimeout, "outer html", chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// URL returns the tab's current location.
func (s *Session) URL(ctx context.Context) (string, error) {
	var u string
	err := s.run(ctx, s.actionTimeout, "location", chromedp.Location(&u))
	return u, err
}

// Close shuts the browser down. Calls after the first are no-ops.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = chromedp.Cancel(s.tabCtx)
		s.cancelTab()
		s.cancelAlloc()
		zap.L().Debug("browser: session closed")
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return eris.Wrap(err, "browser: close")
	}
	return nil
}
