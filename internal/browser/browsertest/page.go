// Package browsertest provides an in-memory browser.Page for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-cli/internal/browser"
)

// Doc is the state of one URL: the elements present (selector to text
// content) and the rendered HTML.
type Doc struct {
	Elements map[string]string
	HTML     string
	// OnClick mutates the document when a selector is clicked.
	OnClick map[string]func(d *Doc)
	// NavigateOnClick maps a selector to the URL that clicking it loads.
	NavigateOnClick map[string]string
}

// Page is a scripted browser.Page. Selectors match by exact string.
type Page struct {
	mu sync.Mutex

	Docs map[string]*Doc
	// NavigateErrs are returned, in order, by successive navigations to a URL.
	NavigateErrs map[string][]error
	EvaluateErr  error

	Calls  []string
	Typed  map[string]string
	Closed int

	currentURL string
	current    *Doc
}

var _ browser.Page = (*Page)(nil)

// New returns an empty page.
func New() *Page {
	return &Page{
		Docs:         make(map[string]*Doc),
		NavigateErrs: make(map[string][]error),
		Typed:        make(map[string]string),
		current:      &Doc{},
	}
}

// AddDoc registers the document served at url.
func (p *Page) AddDoc(url string, elements map[string]string) *Doc {
	p.mu.Lock()
	defer p.mu.Unlock()
	if elements == nil {
		elements = make(map[string]string)
	}
	d := &Doc{
		Elements:        elements,
		OnClick:         make(map[string]func(d *Doc)),
		NavigateOnClick: make(map[string]string),
	}
	p.Docs[url] = d
	return d
}

// CallLog returns a copy of the recorded calls.
func (p *Page) CallLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.Calls...)
}

// CountCalls returns how many recorded calls equal call.
func (p *Page) CountCalls(call string) int {
	n := 0
	for _, c := range p.CallLog() {
		if c == call {
			n++
		}
	}
	return n
}

func (p *Page) record(format string, args ...any) {
	p.Calls = append(p.Calls, fmt.Sprintf(format, args...))
}

func (p *Page) load(url string) {
	p.currentURL = url
	if d, ok := p.Docs[url]; ok {
		p.current = d
		return
	}
	p.current = &Doc{Elements: map[string]string{}}
}

func (p *Page) Navigate(ctx context.Context, url string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("navigate %s", url)
	if err := ctx.Err(); err != nil {
		return err
	}
	if errs := p.NavigateErrs[url]; len(errs) > 0 {
		p.NavigateErrs[url] = errs[1:]
		if errs[0] != nil {
			return errs[0]
		}
	}
	p.load(url)
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("wait %s", selector)
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := p.current.Elements[selector]; !ok {
		return eris.Wrapf(browser.ErrTimeout, "browsertest: wait visible %s", selector)
	}
	return nil
}

func (p *Page) Exists(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("exists %s", selector)
	_, ok := p.current.Elements[selector]
	return ok, nil
}

func (p *Page) Text(_ context.Context, selector string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("text %s", selector)
	text, ok := p.current.Elements[selector]
	return text, ok, nil
}

func (p *Page) Type(_ context.Context, selector, text string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("type %s", selector)
	if _, ok := p.current.Elements[selector]; !ok {
		return eris.Errorf("browsertest: no element %s", selector)
	}
	p.Typed[selector] = text
	return nil
}

func (p *Page) click(selector string) error {
	if _, ok := p.current.Elements[selector]; !ok {
		return eris.Errorf("browsertest: no element %s", selector)
	}
	if fn := p.current.OnClick[selector]; fn != nil {
		fn(p.current)
	}
	return nil
}

func (p *Page) Click(_ context.Context, selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click %s", selector)
	return p.click(selector)
}

func (p *Page) ClickAndWaitNavigation(_ context.Context, selector string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("click+wait %s", selector)
	target, ok := p.current.NavigateOnClick[selector]
	if err := p.click(selector); err != nil {
		return err
	}
	if !ok {
		return eris.Wrapf(browser.ErrTimeout, "browsertest: no navigation after %s", selector)
	}
	p.load(target)
	return nil
}

func (p *Page) Evaluate(_ context.Context, script string, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("evaluate")
	if p.EvaluateErr != nil {
		return p.EvaluateErr
	}
	if b, ok := out.(*bool); ok {
		*b = true
	}
	return nil
}

func (p *Page) HTML(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("html")
	return p.current.HTML, nil
}

func (p *Page) URL(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentURL, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed++
	return nil
}
