// Package pipeline runs the lead enrichment flow: log in once, then extract,
// score, assemble and optionally reach out to each lead in order.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/browser"
	"github.com/sells-group/lead-cli/internal/model"
)

// Session is the authenticated browser shared by every lead.
type Session interface {
	Login(ctx context.Context) error
	Page() browser.Page
	Close() error
}

// Extractor reads a profile. It degrades to sentinels instead of failing.
type Extractor interface {
	Extract(ctx context.Context, page browser.Page, url string) model.ExtractedProfile
}

// Scorer rates a bio. It degrades to Default instead of failing.
type Scorer interface {
	Score(ctx context.Context, bio string) model.ScoreResult
	Default() model.ScoreResult
}

// Outreach sends connection requests to eligible leads.
type Outreach interface {
	Eligible(angelScore float64) bool
	Run(ctx context.Context, page browser.Page, rec model.LeadRecord) model.OutreachOutcome
}

// Sink is a durable destination for the run's records.
type Sink interface {
	Name() string
	InsertLeads(ctx context.Context, leads []model.LeadRecord) (int, error)
}

// Snapshotter writes the local copy of the run's records.
type Snapshotter interface {
	Path() string
	Write(leads []model.LeadRecord) error
}

// FailureRecorder keeps leads that need another pass.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, f model.FailedLead) error
}

// Deps are the collaborators of a Pipeline. Outreach, Snapshot, Failures,
// Metrics and Sinks are optional.
type Deps struct {
	Session   Session
	Extractor Extractor
	Scorer    Scorer
	Outreach  Outreach
	Sinks     []Sink
	Snapshot  Snapshotter
	Failures  FailureRecorder
	Metrics   *Metrics
}

// Options tune a run.
type Options struct {
	Assemble    AssembleOptions
	PushTimeout time.Duration
	// Now is the clock used for record timestamps; nil means time.Now.
	Now func() time.Time
}

// Pipeline processes a batch of leads through one session.
type Pipeline struct {
	deps Deps
	opts Options
}

// New creates a Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	if opts.PushTimeout <= 0 {
		opts.PushTimeout = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{deps: deps, opts: opts}
}

// Run logs in, processes every input in order and persists the records. The
// only error is a failed login, returned as is; every other failure is
// isolated to its lead or recorded on the result.
func (p *Pipeline) Run(ctx context.Context, inputs []model.LeadInput) (*model.RunResult, error) {
	result := &model.RunResult{
		ID:        uuid.NewString(),
		StartedAt: p.opts.Now().UTC(),
		Leads:     make([]model.LeadRecord, 0, len(inputs)),
	}
	log := zap.L().With(zap.String("run_id", result.ID))

	defer func() {
		if err := p.deps.Session.Close(); err != nil {
			log.Warn("pipeline: close session", zap.Error(err))
		}
	}()

	if err := p.deps.Session.Login(ctx); err != nil {
		log.Error("pipeline: login failed, aborting run", zap.Error(err))
		return nil, err
	}

	log.Info("pipeline: starting run", zap.Int("leads", len(inputs)))
	page := p.deps.Session.Page()
	for i, in := range inputs {
		result.Leads = append(result.Leads, p.processLead(ctx, page, i, in))
	}

	p.persist(ctx, result)
	result.FinishedAt = p.opts.Now().UTC()

	counts := result.Counts()
	log.Info("pipeline: run complete",
		zap.Int("leads", len(result.Leads)),
		zap.Int("sent", counts[model.OutreachStatusSent]),
		zap.Int("skipped", counts[model.OutreachStatusSkipped]),
		zap.Duration("elapsed", result.FinishedAt.Sub(result.StartedAt)),
	)
	return result, nil
}

// processLead always returns a record. Steps that panic leave their defaults
// in place.
func (p *Pipeline) processLead(ctx context.Context, page browser.Page, idx int, in model.LeadInput) model.LeadRecord {
	log := zap.L().With(zap.Int("index", idx), zap.String("url", in.URL))

	var failedStep, failure string
	trackStep := func(name string, fn func()) {
		start := time.Now()
		err := func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = eris.Errorf("pipeline: %s panicked: %v", name, r)
				}
			}()
			fn()
			return nil
		}()
		elapsed := time.Since(start)
		p.deps.Metrics.ObserveStep(name, elapsed)

		if err != nil {
			log.Error("pipeline: step failed", zap.String("step", name), zap.Duration("duration", elapsed), zap.Error(err))
			if failedStep == "" {
				failedStep, failure = name, err.Error()
			}
			return
		}
		log.Debug("pipeline: step complete", zap.String("step", name), zap.Duration("duration", elapsed))
	}

	profile := model.ExtractedProfile{Name: model.NameNotFound, Bio: model.BioNotFound}
	trackStep("extract", func() {
		profile = p.deps.Extractor.Extract(ctx, page, in.URL)
	})

	score := p.deps.Scorer.Default()
	trackStep("score", func() {
		score = p.deps.Scorer.Score(ctx, profile.Bio)
	})

	rec := Assemble(in, profile, score, p.opts.Assemble, p.opts.Now())

	switch {
	case p.deps.Outreach == nil:
		rec.OutreachStatus = model.OutreachStatusDisabled
	case !p.deps.Outreach.Eligible(rec.AngelScore):
		rec.OutreachStatus = model.OutreachStatusNotEligible
	default:
		rec.OutreachStatus = model.OutreachStatusSkipped
		trackStep("outreach", func() {
			rec.OutreachStatus = p.deps.Outreach.Run(ctx, page, rec).Status()
		})
	}

	degraded := !profile.HasName() && !profile.HasBio()
	switch {
	case failedStep != "":
		p.deps.Metrics.LeadProcessed("failed")
		p.recordFailure(ctx, in, failedStep, failure)
	case degraded:
		p.deps.Metrics.LeadProcessed("degraded")
		p.recordFailure(ctx, in, "extract", "profile not found")
	default:
		p.deps.Metrics.LeadProcessed("ok")
	}

	log.Info("pipeline: lead processed",
		zap.String("name", rec.Name),
		zap.Float64("angel_score", rec.AngelScore),
		zap.Float64("icp_score", rec.ICPScore),
		zap.String("outreach", string(rec.OutreachStatus)),
	)
	return rec
}

func (p *Pipeline) recordFailure(ctx context.Context, in model.LeadInput, step, reason string) {
	if p.deps.Failures == nil {
		return
	}
	f := model.FailedLead{
		URL:      in.URL,
		Name:     in.Name,
		Email:    in.Email,
		Step:     step,
		Error:    reason,
		FailedAt: p.opts.Now().UTC(),
	}
	if err := p.deps.Failures.RecordFailure(context.WithoutCancel(ctx), f); err != nil {
		zap.L().Warn("pipeline: record failed lead", zap.String("url", in.URL), zap.Error(err))
	}
}

// persist writes the snapshot first, then pushes to every sink. Neither can
// fail the run.
func (p *Pipeline) persist(ctx context.Context, result *model.RunResult) {
	if p.deps.Snapshot != nil {
		result.SnapshotPath = p.deps.Snapshot.Path()
		if err := p.deps.Snapshot.Write(result.Leads); err != nil {
			result.SnapshotError = err.Error()
			zap.L().Error("pipeline: write snapshot", zap.String("path", result.SnapshotPath), zap.Error(err))
		} else {
			zap.L().Info("pipeline: snapshot written", zap.String("path", result.SnapshotPath), zap.Int("leads", len(result.Leads)))
		}
	}

	if len(result.Leads) == 0 {
		return
	}

	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.PushTimeout)
	defer cancel()
	for _, sink := range p.deps.Sinks {
		result.Pushes = append(result.Pushes, Push(pushCtx, sink, result.Leads))
	}
}

// Push sends leads to one sink, converting errors and panics into the
// returned PushResult.
func Push(ctx context.Context, sink Sink, leads []model.LeadRecord) (pr model.PushResult) {
	pr.Sink = sink.Name()
	log := zap.L().With(zap.String("sink", pr.Sink))
	defer func() {
		if r := recover(); r != nil {
			pr.Error = fmt.Sprintf("panic: %v", r)
			log.Error("pipeline: push panicked", zap.Any("panic", r))
		}
	}()

	n, err := sink.InsertLeads(ctx, leads)
	pr.Inserted = n
	if err != nil {
		pr.Error = err.Error()
		log.Warn("pipeline: push failed, snapshot remains the fallback", zap.Error(err))
		return pr
	}
	log.Info("pipeline: pushed leads", zap.Int("inserted", n))
	return pr
}
