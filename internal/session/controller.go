// Package session owns the authenticated browser session used for a run.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/browser"
	"github.com/sells-group/lead-cli/internal/resilience"
)

// State is the lifecycle of the session.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateClosed          State = "closed"
)

// Credentials are the site login.
type Credentials struct {
	Username string
	Password string
}

// Config controls the login flow.
type Config struct {
	LoginURL         string
	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	Timeout          time.Duration
	KeystrokeDelay   time.Duration
	MaxAttempts      int
	Backoff          time.Duration
}

// AuthError is returned when every login attempt failed. It is fatal for the run.
type AuthError struct {
	Attempts int
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("session: login failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// AttemptObserver is notified after every login attempt.
type AttemptObserver interface {
	LoginAttempt(ok bool)
}

// Controller logs in once and hands out the authenticated page.
type Controller struct {
	page     browser.Page
	creds    Credentials
	cfg      Config
	observer AttemptObserver

	mu    sync.Mutex
	state State
}

// NewController wraps page. The controller takes ownership of page and closes
// it in Close.
func NewController(page browser.Page, creds Credentials, cfg Config, observer AttemptObserver) *Controller {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Controller{
		page:     page,
		creds:    creds,
		cfg:      cfg,
		observer: observer,
		state:    StateUnauthenticated,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Page returns the browser tab. It is only meaningful once Login succeeded.
func (c *Controller) Page() browser.Page {
	return c.page
}

// Login authenticates the session, retrying the full form submission with a
// fixed pause between attempts. Exhaustion returns *AuthError.
func (c *Controller) Login(ctx context.Context) error {
	if c.State() == StateAuthenticated {
		return nil
	}
	if c.State() == StateClosed {
		return &AuthError{Err: eris.New("session: already closed")}
	}

	log := zap.L().With(zap.String("login_url", c.cfg.LoginURL))

	retry := resilience.FixedRetryConfig(c.cfg.MaxAttempts, c.cfg.Backoff)
	retry.OnRetry = resilience.RetryLogger("linkedin", "login")

	attempts := 0
	err := resilience.Do(ctx, retry, func(ctx context.Context) error {
		attempts++
		err := c.attempt(ctx)
		if c.observer != nil {
			c.observer.LoginAttempt(err == nil)
		}
		return err
	})
	if err != nil {
		log.Error("session: login failed", zap.Int("attempts", attempts), zap.Error(err))
		return &AuthError{Attempts: attempts, Err: err}
	}

	c.mu.Lock()
	c.state = StateAuthenticated
	c.mu.Unlock()

	log.Info("session: logged in", zap.Int("attempts", attempts))
	return nil
}

func (c *Controller) attempt(ctx context.Context) error {
	if err := c.page.Navigate(ctx, c.cfg.LoginURL, c.cfg.Timeout); err != nil {
		return eris.Wrap(err, "session: open login page")
	}
	if err := c.page.WaitVisible(ctx, c.cfg.UsernameSelector, c.cfg.Timeout); err != nil {
		return eris.Wrap(err, "session: login form")
	}
	if err := c.page.Type(ctx, c.cfg.UsernameSelector, c.creds.Username, c.cfg.KeystrokeDelay); err != nil {
		return eris.Wrap(err, "session: type username")
	}
	if err := c.page.Type(ctx, c.cfg.PasswordSelector, c.creds.Password, c.cfg.KeystrokeDelay); err != nil {
		return eris.Wrap(err, "session: type password")
	}
	if err := c.page.ClickAndWaitNavigation(ctx, c.cfg.SubmitSelector, c.cfg.Timeout); err != nil {
		return eris.Wrap(err, "session: submit login")
	}

	landed, err := c.page.URL(ctx)
	if err != nil {
		return eris.Wrap(err, "session: read location")
	}
	if isLoginWall(landed) {
		return eris.Errorf("session: still gated after submit (%s)", landed)
	}
	return nil
}

// loginWallMarkers are path fragments of pages that mean the session is not
// usable: the login form itself, security checkpoints and the auth wall.
var loginWallMarkers = []string{
	"/login",
	"/checkpoint",
	"/authwall",
	"/uas/login",
}

func isLoginWall(u string) bool {
	lower := strings.ToLower(u)
	for _, m := range loginWallMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Close tears down the browser. Safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.state = StateClosed
	c.mu.Unlock()

	if err := c.page.Close(); err != nil {
		return eris.Wrap(err, "session: close browser")
	}
	return nil
}
