package outreach

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/browser"
	"github.com/sells-group/lead-cli/internal/model"
)

// Config controls the connection-request flow.
type Config struct {
	Threshold       float64
	DryRun          bool
	NavigateTimeout time.Duration
	ControlTimeout  time.Duration
	SettleDelay     time.Duration
	KeystrokeDelay  time.Duration
	InviteSelector  string
	AddNoteSelector string
	NoteSelector    string
	SendSelector    string
}

// MessageComposer writes the connection note.
type MessageComposer interface {
	Compose(ctx context.Context, bio, name string, angelScore float64) string
}

// Observer is told the terminal state of every run.
type Observer interface {
	Outreach(state model.OutreachState)
}

// Automator drives invite → note → send on a profile page.
type Automator struct {
	cfg      Config
	composer MessageComposer
	observer Observer
}

// NewAutomator returns an Automator. observer may be nil.
func NewAutomator(cfg Config, composer MessageComposer, observer Observer) *Automator {
	if cfg.NavigateTimeout <= 0 {
		cfg.NavigateTimeout = 20 * time.Second
	}
	if cfg.ControlTimeout <= 0 {
		cfg.ControlTimeout = 12 * time.Second
	}
	return &Automator{cfg: cfg, composer: composer, observer: observer}
}

// Eligible reports whether a lead with this angel score gets a request.
func (a *Automator) Eligible(angelScore float64) bool {
	return angelScore >= a.cfg.Threshold
}

// run tracks one pass through the state machine.
type run struct {
	out model.OutreachOutcome
	log *zap.Logger
}

func (r *run) to(s model.OutreachState) {
	r.out.State = s
	r.out.Trail = append(r.out.Trail, s)
}

func (r *run) skip(reason string) model.OutreachOutcome {
	r.out.Reason = reason
	r.to(model.OutreachSkipped)
	r.log.Info("outreach: skipped", zap.String("reason", reason))
	return r.out
}

// Run sends a connection request for rec. It never fails: every error ends in
// Skipped. A settle delay is held after the terminal state.
func (a *Automator) Run(ctx context.Context, page browser.Page, rec model.LeadRecord) (outcome model.OutreachOutcome) {
	r := &run{log: zap.L().With(zap.String("url", rec.URL))}
	r.to(model.OutreachNotStarted)

	defer func() {
		if p := recover(); p != nil {
			outcome = r.skip(fmt.Sprintf("panic: %v", p))
		}
		if err := browser.Settle(ctx, a.cfg.SettleDelay); err != nil {
			r.log.Debug("outreach: settle interrupted", zap.Error(err))
		}
		if a.observer != nil {
			a.observer.Outreach(outcome.State)
		}
	}()

	return a.drive(ctx, page, rec, r)
}

func (a *Automator) drive(ctx context.Context, page browser.Page, rec model.LeadRecord, r *run) model.OutreachOutcome {
	if err := page.Navigate(ctx, rec.URL, a.cfg.NavigateTimeout); err != nil {
		return r.skip("navigate: " + err.Error())
	}
	r.to(model.OutreachNavigated)

	if err := page.WaitVisible(ctx, a.cfg.InviteSelector, a.cfg.ControlTimeout); err != nil {
		return r.skip("invite control not found")
	}

	if err := page.Click(ctx, a.cfg.InviteSelector); err != nil {
		return r.skip("click invite: " + err.Error())
	}
	r.to(model.OutreachInviteClicked)

	if err := page.WaitVisible(ctx, a.cfg.AddNoteSelector, a.cfg.ControlTimeout); err == nil {
		if err := page.Click(ctx, a.cfg.AddNoteSelector); err != nil {
			return r.skip("click add note: " + err.Error())
		}
		r.to(model.OutreachNoteOpened)

		r.out.Message = a.composer.Compose(ctx, rec.Bio, rec.Name, rec.AngelScore)
		if err := page.WaitVisible(ctx, a.cfg.NoteSelector, a.cfg.ControlTimeout); err != nil {
			return r.skip("note field not found")
		}
		if err := page.Type(ctx, a.cfg.NoteSelector, r.out.Message, a.cfg.KeystrokeDelay); err != nil {
			return r.skip("type note: " + err.Error())
		}
		r.to(model.OutreachMessageTyped)
	} else {
		r.log.Debug("outreach: no add-note control, sending without note")
	}

	if err := page.WaitVisible(ctx, a.cfg.SendSelector, a.cfg.ControlTimeout); err != nil {
		return r.skip("send control not found")
	}
	if a.cfg.DryRun {
		r.log.Info("outreach: dry run, not sending", zap.String("message", r.out.Message))
		return r.skip("dry_run")
	}
	if err := page.Click(ctx, a.cfg.SendSelector); err != nil {
		return r.skip("click send: " + err.Error())
	}
	r.to(model.OutreachSent)
	r.log.Info("outreach: connection request sent", zap.Bool("with_note", r.out.Message != ""))
	return r.out
}
