package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/browser"
	"github.com/sells-group/lead-cli/internal/crm"
	"github.com/sells-group/lead-cli/internal/extract"
	"github.com/sells-group/lead-cli/internal/input"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/monitoring"
	"github.com/sells-group/lead-cli/internal/outreach"
	"github.com/sells-group/lead-cli/internal/pipeline"
	"github.com/sells-group/lead-cli/internal/scoring"
	"github.com/sells-group/lead-cli/internal/session"
	"github.com/sells-group/lead-cli/internal/store"
)

var (
	runInput       string
	runURLs        []string
	runNotion      bool
	runRetryFailed bool
	runLimit       int
	runSnapshot    string
	runNoOutreach  bool
	runDryRun      bool
	runHeadful     bool
	runTags        []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Enrich a batch of leads",
	Long:  "Logs in once and processes every lead in order. Exactly one of --input, --url, --notion or --retry-failed selects the leads.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		applyRunFlags()
		if err := cfg.Validate("run"); err != nil {
			return err
		}
		if err := checkSources(); err != nil {
			return err
		}

		lock := flock.New(cfg.Run.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return eris.Wrapf(err, "lock %s", cfg.Run.LockPath)
		}
		if !locked {
			return eris.Errorf("another run holds %s", cfg.Run.LockPath)
		}
		defer lock.Unlock() //nolint:errcheck

		// Init store
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		inputs, err := loadInputs(ctx, st)
		if err != nil {
			return err
		}
		if len(inputs) == 0 {
			zap.L().Info("no leads to process")
			return nil
		}

		metrics := pipeline.NewMetrics()

		// Init LLM-backed services
		llmClient, closeLLM, err := initLLM(ctx)
		if err != nil {
			return err
		}
		defer closeLLM()

		evaluator, err := scoring.New(llmClient, scoring.Config{
			Model:           cfg.EvaluationModel(),
			Temperature:     cfg.Evaluation.Temperature,
			MaxTokens:       cfg.Evaluation.MaxTokens,
			MinBioLength:    cfg.Evaluation.MinBioLength,
			DefaultScore:    cfg.Evaluation.DefaultScore,
			CacheSize:       cfg.Evaluation.CacheSize,
			MaxAttempts:     cfg.Evaluation.MaxAttempts,
			BreakerFailures: cfg.Evaluation.BreakerTrips,
		}, metrics)
		if err != nil {
			return eris.Wrap(err, "init evaluator")
		}

		var automator pipeline.Outreach
		if cfg.Outreach.Enabled {
			composer := outreach.NewComposer(llmClient, outreach.ComposerConfig{
				Model:            cfg.OutreachModel(),
				Temperature:      cfg.Outreach.Temperature,
				MaxTokens:        cfg.Outreach.MaxTokens,
				MaxLength:        cfg.Outreach.MaxLength,
				FallbackTemplate: cfg.Outreach.FallbackTemplate,
			})
			automator = outreach.NewAutomator(outreachConfig(), composer, metrics)
		}

		// Init browser session
		page, err := browser.NewSession(ctx, browser.Options{
			Headless:    cfg.Browser.Headless,
			ExecPath:    cfg.Browser.ExecPath,
			UserDataDir: cfg.Browser.UserDataDir,
			UserAgent:   cfg.Browser.UserAgent,
		})
		if err != nil {
			return eris.Wrap(err, "start browser")
		}
		controller := session.NewController(page,
			session.Credentials{Username: cfg.LinkedIn.Email, Password: cfg.LinkedIn.Password},
			sessionConfig(),
			metrics,
		)

		failures := newFailureTracker(st)
		p := pipeline.New(pipeline.Deps{
			Session:   controller,
			Extractor: extract.New(extractConfig()),
			Scorer:    evaluator,
			Outreach:  automator,
			Sinks:     initSinks(st),
			Snapshot:  store.NewSnapshot(cfg.Run.SnapshotPath),
			Failures:  failures,
			Metrics:   metrics,
		}, pipeline.Options{
			Assemble: pipeline.AssembleOptions{
				Tags:        runTags,
				EmailDomain: cfg.Lead.PlaceholderEmailDomain,
			},
			PushTimeout: cfg.Run.PushTimeout,
		})

		alerter := monitoring.NewAlerter(cfg.Monitoring)
		result, err := p.Run(ctx, inputs)
		if err != nil {
			alerter.SendAlerts(context.WithoutCancel(ctx), []monitoring.Alert{alerter.LoginFailed(err)})
			return eris.Wrap(err, "pipeline run")
		}
		alerter.SendAlerts(context.WithoutCancel(ctx), alerter.Evaluate(monitoring.Summarize(result)))

		if runRetryFailed {
			failures.clearRecovered(ctx, inputs)
		}
		if err := metrics.WriteTextfile(cfg.Run.MetricsTextfile); err != nil {
			zap.L().Warn("write metrics textfile", zap.Error(err))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func applyRunFlags() {
	if runSnapshot != "" {
		cfg.Run.SnapshotPath = runSnapshot
	}
	if runNoOutreach {
		cfg.Outreach.Enabled = false
	}
	if runDryRun {
		cfg.Outreach.DryRun = true
	}
	if runHeadful {
		cfg.Browser.Headless = false
	}
}

// checkSources requires exactly one lead source.
func checkSources() error {
	n := 0
	for _, set := range []bool{runInput != "", len(runURLs) > 0, runNotion, runRetryFailed} {
		if set {
			n++
		}
	}
	if n != 1 {
		return eris.New("exactly one of --input, --url, --notion or --retry-failed is required")
	}
	return nil
}

func loadInputs(ctx context.Context, st store.Store) ([]model.LeadInput, error) {
	var (
		leads []model.LeadInput
		err   error
	)
	switch {
	case runInput != "":
		leads, err = input.Load(runInput)
	case len(runURLs) > 0:
		leads = make([]model.LeadInput, 0, len(runURLs))
		for _, u := range runURLs {
			leads = append(leads, model.LeadInput{URL: u})
		}
	case runNotion:
		nc, nerr := initNotion()
		if nerr != nil {
			return nil, nerr
		}
		return crm.NewNotionSource(nc, cfg.Notion.LeadDB).Leads(ctx, runLimit)
	case runRetryFailed:
		failed, ferr := st.ListFailures(ctx, runLimit)
		if ferr != nil {
			return nil, eris.Wrap(ferr, "list failed leads")
		}
		leads = make([]model.LeadInput, 0, len(failed))
		for _, f := range failed {
			leads = append(leads, f.Input())
		}
	}
	if err != nil {
		return nil, err
	}
	if runLimit > 0 && len(leads) > runLimit {
		leads = leads[:runLimit]
	}
	return leads, nil
}

func sessionConfig() session.Config {
	return session.Config{
		LoginURL:         cfg.LinkedIn.LoginURL,
		UsernameSelector: cfg.LinkedIn.UsernameSelector,
		PasswordSelector: cfg.LinkedIn.PasswordSelector,
		SubmitSelector:   cfg.LinkedIn.SubmitSelector,
		Timeout:          cfg.Login.Timeout,
		KeystrokeDelay:   cfg.Login.KeystrokeDelay,
		MaxAttempts:      cfg.Login.MaxAttempts,
		Backoff:          cfg.Login.Backoff,
	}
}

func extractConfig() extract.Config {
	return extract.Config{
		NavigateTimeout: cfg.Extract.NavigateTimeout,
		NameTimeout:     cfg.Extract.NameTimeout,
		SettleDelay:     cfg.Extract.SettleDelay,
		NameSelector:    cfg.Extract.NameSelector,
	}
}

func outreachConfig() outreach.Config {
	return outreach.Config{
		Threshold:       cfg.Outreach.Threshold,
		DryRun:          cfg.Outreach.DryRun,
		NavigateTimeout: cfg.Outreach.NavigateTimeout,
		ControlTimeout:  cfg.Outreach.ControlTimeout,
		SettleDelay:     cfg.Outreach.SettleDelay,
		KeystrokeDelay:  cfg.Outreach.KeystrokeDelay,
		InviteSelector:  cfg.Outreach.InviteSelector,
		AddNoteSelector: cfg.Outreach.AddNoteSelector,
		NoteSelector:    cfg.Outreach.NoteSelector,
		SendSelector:    cfg.Outreach.SendSelector,
	}
}

// failureTracker records dead-letter entries and remembers which URLs failed
// during this run.
type failureTracker struct {
	store.Store

	mu     sync.Mutex
	failed map[string]bool
}

func newFailureTracker(st store.Store) *failureTracker {
	return &failureTracker{Store: st, failed: make(map[string]bool)}
}

func (t *failureTracker) RecordFailure(ctx context.Context, f model.FailedLead) error {
	t.mu.Lock()
	t.failed[f.URL] = true
	t.mu.Unlock()
	return t.Store.RecordFailure(ctx, f)
}

// clearRecovered removes retried leads that succeeded this time from the
// dead-letter queue.
func (t *failureTracker) clearRecovered(ctx context.Context, inputs []model.LeadInput) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, in := range inputs {
		if t.failed[in.URL] {
			continue
		}
		if err := t.Store.ClearFailure(ctx, in.URL); err != nil {
			zap.L().Warn("clear recovered lead", zap.String("url", in.URL), zap.Error(err))
		}
	}
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "JSON or YAML file of leads")
	runCmd.Flags().StringSliceVar(&runURLs, "url", nil, "profile URL to enrich (repeatable)")
	runCmd.Flags().BoolVar(&runNotion, "notion", false, "process queued leads from the Notion lead database")
	runCmd.Flags().BoolVar(&runRetryFailed, "retry-failed", false, "reprocess leads from the failed-lead queue")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "max leads to process (0 = all)")
	runCmd.Flags().StringVar(&runSnapshot, "snapshot", "", "snapshot output path (overrides run.snapshot_path)")
	runCmd.Flags().BoolVar(&runNoOutreach, "no-outreach", false, "skip connection requests")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run-outreach", false, "type the note but do not send it")
	runCmd.Flags().BoolVar(&runHeadful, "headful", false, "show the browser window")
	runCmd.Flags().StringSliceVar(&runTags, "tag", nil, "tags stamped on every record (default auto)")
	rootCmd.AddCommand(runCmd)
}
