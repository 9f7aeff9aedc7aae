package scoring

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/llm"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/resilience"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type recordingObserver struct {
	results []string
}

func (o *recordingObserver) EvaluationCall(result string) {
	o.results = append(o.results, result)
}

var longBio = strings.Repeat("Serial founder who has raised seed and Series A rounds. ", 3)

func testConfig() Config {
	return Config{
		Model:        "gpt-4o-mini",
		Temperature:  0.7,
		MaxTokens:    100,
		MinBioLength: 80,
		DefaultScore: 1,
		MaxAttempts:  2,
	}
}

func newEvaluator(t *testing.T, client llm.Client, cfg Config) (*Evaluator, *recordingObserver) {
	t.Helper()
	obs := &recordingObserver{}
	e, err := New(client, cfg, obs)
	require.NoError(t, err)
	e.retry.InitialBackoff = time.Millisecond
	e.retry.JitterFraction = 0
	return e, obs
}

func TestScore_SendsPromptAndParses(t *testing.T) {
	client := &MockClient{}
	client.On("Complete", mock.Anything, mock.MatchedBy(func(r llm.Request) bool {
		return r.Model == "gpt-4o-mini" &&
			r.System == SystemPrompt &&
			r.Prompt == longBio &&
			r.Temperature == 0.7 &&
			r.MaxTokens == 100 &&
			r.Purpose == "score"
	})).Return(`Sure! {"angelScore":8,"icpScore":6}`, nil).Once()

	e, obs := newEvaluator(t, client, testConfig())
	got := e.Score(context.Background(), longBio)

	assert.Equal(t, model.ScoreResult{AngelScore: 8, ICPScore: 6, FinalScore: 7}, got)
	assert.Equal(t, []string{ResultOK}, obs.results)
	client.AssertExpectations(t)
}

func TestScore_ClampsOutOfRange(t *testing.T) {
	client := &MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(`{"angelScore":15,"icpScore":-3}`, nil)

	e, _ := newEvaluator(t, client, testConfig())
	got := e.Score(context.Background(), longBio)

	assert.Equal(t, 10.0, got.AngelScore)
	assert.Equal(t, 0.0, got.ICPScore)
	assert.Equal(t, 5.0, got.FinalScore)
}

func TestScore_GateSkipsCall(t *testing.T) {
	tests := []struct {
		name string
		bio  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"sentinel", model.BioNotFound},
		{"short", "Investor. Founder. Coffee lover. 40 chars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockClient{}
			e, obs := newEvaluator(t, client, testConfig())

			got := e.Score(context.Background(), tt.bio)

			assert.Equal(t, model.NewScoreResult(1, 1), got)
			assert.Equal(t, []string{ResultSkipped}, obs.results)
			client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
		})
	}
}

func TestScore_FailureReturnsDefault(t *testing.T) {
	client := &MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("invalid api key"))

	cfg := testConfig()
	cfg.DefaultScore = 2
	e, obs := newEvaluator(t, client, cfg)
	got := e.Score(context.Background(), longBio)

	assert.Equal(t, model.NewScoreResult(2, 2), got)
	assert.Equal(t, []string{ResultError}, obs.results)
	// Permanent errors are not retried.
	client.AssertNumberOfCalls(t, "Complete", 1)
}

func TestScore_RetriesTransient(t *testing.T) {
	client := &MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).
		Return("", resilience.NewTransientError(errors.New("429"), 429)).Once()
	client.On("Complete", mock.Anything, mock.Anything).
		Return(`{"angelScore": 9, "icpScore": 7}`, nil).Once()

	e, _ := newEvaluator(t, client, testConfig())
	got := e.Score(context.Background(), longBio)

	assert.Equal(t, 9.0, got.AngelScore)
	assert.Equal(t, 8.0, got.FinalScore)
	client.AssertNumberOfCalls(t, "Complete", 2)
}

func TestScore_UnparsableReply(t *testing.T) {
	client := &MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return("I cannot rate this person.", nil)

	e, obs := newEvaluator(t, client, testConfig())
	got := e.Score(context.Background(), longBio)

	assert.Equal(t, e.Default(), got)
	assert.Equal(t, []string{ResultUnparsable}, obs.results)
}

func TestScore_CachesByBio(t *testing.T) {
	client := &MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return(`{"angelScore":4,"icpScore":6}`, nil).Once()

	e, obs := newEvaluator(t, client, testConfig())
	first := e.Score(context.Background(), longBio)
	second := e.Score(context.Background(), "  "+longBio+"  ")

	assert.Equal(t, first, second)
	assert.Equal(t, []string{ResultOK, ResultCached}, obs.results)
	client.AssertNumberOfCalls(t, "Complete", 1)
}

func TestScore_FailuresAreNotCached(t *testing.T) {
	client := &MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return("no json", nil).Once()
	client.On("Complete", mock.Anything, mock.Anything).Return(`{"angelScore":7,"icpScore":7}`, nil).Once()

	e, _ := newEvaluator(t, client, testConfig())
	assert.Equal(t, e.Default(), e.Score(context.Background(), longBio))
	assert.Equal(t, 7.0, e.Score(context.Background(), longBio).FinalScore)
}

func TestScore_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	client := &MockClient{}
	client.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("boom"))

	cfg := testConfig()
	cfg.BreakerFailures = 2
	e, _ := newEvaluator(t, client, cfg)

	for i := 0; i < 4; i++ {
		assert.Equal(t, e.Default(), e.Score(context.Background(), longBio+strings.Repeat("x", i)))
	}
	client.AssertNumberOfCalls(t, "Complete", 2)
	assert.Equal(t, resilience.CircuitOpen, e.breaker.State())
}

func TestDefault_Clamped(t *testing.T) {
	e, err := New(&MockClient{}, Config{DefaultScore: 42}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.NewScoreResult(10, 10), e.Default())
}

func TestInformative_CountsRunes(t *testing.T) {
	e, err := New(&MockClient{}, Config{MinBioLength: 5}, nil)
	require.NoError(t, err)
	assert.True(t, e.Informative("héllo"))
	assert.False(t, e.Informative("héll"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "héé...", truncate("héééé", 3))

	long := strings.Repeat("日本", 150)
	got := truncate(long, 200)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 203, utf8.RuneCountInString(got))
}
