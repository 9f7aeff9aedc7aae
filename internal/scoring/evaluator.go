// Package scoring rates a profile bio as an angel investment prospect and as
// an ideal-customer fit.
package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-cli/internal/llm"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/resilience"
)

// SystemPrompt instructs the model to answer with the two scores as JSON.
const SystemPrompt = `You are an expert in startup evaluation. Return only JSON with "angelScore" and "icpScore" from 0 to 10 based on the bio.`

// Evaluation call outcomes reported to the Observer.
const (
	ResultOK         = "ok"
	ResultCached     = "cached"
	ResultSkipped    = "skipped"
	ResultError      = "error"
	ResultUnparsable = "unparsable"
)

// Config controls the evaluation call and its fallbacks.
type Config struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	MinBioLength int
	DefaultScore float64
	CacheSize    int
	MaxAttempts  int
	// BreakerFailures is the consecutive-failure count that stops calling
	// the provider for a while. Zero keeps the breaker default.
	BreakerFailures int
}

// Observer is told the outcome of every Score call.
type Observer interface {
	EvaluationCall(result string)
}

// Evaluator scores bios. It is safe for sequential use only.
type Evaluator struct {
	client   llm.Client
	cfg      Config
	cache    *lru.Cache[string, model.ScoreResult]
	breaker  *resilience.CircuitBreaker
	retry    resilience.RetryConfig
	observer Observer
}

// New creates an Evaluator. observer may be nil.
func New(client llm.Client, cfg Config, observer Observer) (*Evaluator, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	cache, err := lru.New[string, model.ScoreResult](cfg.CacheSize)
	if err != nil {
		return nil, eris.Wrap(err, "scoring: create cache")
	}
	return &Evaluator{
		client:   client,
		cfg:      cfg,
		cache:    cache,
		breaker:  resilience.NewCircuitBreaker(resilience.FromCircuitConfig(cfg.BreakerFailures, 0)),
		retry:    resilience.APIRetryConfig("evaluation", cfg.MaxAttempts),
		observer: observer,
	}, nil
}

// Default is the neutral low score used whenever evaluation is skipped or
// fails.
func (e *Evaluator) Default() model.ScoreResult {
	d := Clamp(e.cfg.DefaultScore)
	return model.NewScoreResult(d, d)
}

// Informative reports whether bio is worth an evaluation call.
func (e *Evaluator) Informative(bio string) bool {
	bio = strings.TrimSpace(bio)
	if bio == "" || bio == model.BioNotFound {
		return false
	}
	return utf8.RuneCountInString(bio) >= e.cfg.MinBioLength
}

// Score evaluates bio. It never fails: uninformative bios and any error on
// the way return Default.
func (e *Evaluator) Score(ctx context.Context, bio string) model.ScoreResult {
	if !e.Informative(bio) {
		e.observe(ResultSkipped)
		return e.Default()
	}

	key := cacheKey(bio)
	if cached, ok := e.cache.Get(key); ok {
		e.observe(ResultCached)
		return cached
	}

	reply, err := resilience.ExecuteVal(ctx, e.breaker, func(ctx context.Context) (string, error) {
		return resilience.DoVal(ctx, e.retry, func(ctx context.Context) (string, error) {
			return e.client.Complete(ctx, llm.Request{
				Purpose:     "score",
				Model:       e.cfg.Model,
				System:      SystemPrompt,
				Prompt:      bio,
				Temperature: e.cfg.Temperature,
				MaxTokens:   e.cfg.MaxTokens,
			})
		})
	})
	if err != nil {
		zap.L().Warn("scoring: evaluation failed, using default", zap.Error(err))
		e.observe(ResultError)
		return e.Default()
	}

	result, ok := Parse(reply, e.cfg.DefaultScore)
	if !ok {
		zap.L().Warn("scoring: reply has no JSON object, using default", zap.String("reply", truncate(reply, 200)))
		e.observe(ResultUnparsable)
		return e.Default()
	}

	e.cache.Add(key, result)
	e.observe(ResultOK)
	return result
}

func (e *Evaluator) observe(result string) {
	if e.observer != nil {
		e.observer.EvaluationCall(result)
	}
}

func cacheKey(bio string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(bio)))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
