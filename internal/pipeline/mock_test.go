package pipeline

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/lead-cli/internal/browser"
	"github.com/sells-group/lead-cli/internal/browser/browsertest"
	"github.com/sells-group/lead-cli/internal/model"
)

// MockSession implements Session.
type MockSession struct {
	mock.Mock
	page *browsertest.Page
}

func newMockSession() *MockSession {
	return &MockSession{page: browsertest.New()}
}

func (m *MockSession) Login(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSession) Page() browser.Page { return m.page }

func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockExtractor implements Extractor.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, page browser.Page, url string) model.ExtractedProfile {
	args := m.Called(ctx, page, url)
	return args.Get(0).(model.ExtractedProfile)
}

// MockScorer implements Scorer.
type MockScorer struct {
	mock.Mock
}

func (m *MockScorer) Score(ctx context.Context, bio string) model.ScoreResult {
	args := m.Called(ctx, bio)
	return args.Get(0).(model.ScoreResult)
}

func (m *MockScorer) Default() model.ScoreResult {
	return model.NewScoreResult(1, 1)
}

// MockOutreach implements Outreach with the production threshold.
type MockOutreach struct {
	mock.Mock
}

func (m *MockOutreach) Eligible(angelScore float64) bool {
	return angelScore >= 7
}

func (m *MockOutreach) Run(ctx context.Context, page browser.Page, rec model.LeadRecord) model.OutreachOutcome {
	args := m.Called(ctx, page, rec)
	return args.Get(0).(model.OutreachOutcome)
}

// MockSink implements Sink.
type MockSink struct {
	mock.Mock
	name string
	log  *callLog
}

func (m *MockSink) Name() string { return m.name }

func (m *MockSink) InsertLeads(ctx context.Context, leads []model.LeadRecord) (int, error) {
	m.log.add("push " + m.name)
	args := m.Called(ctx, leads)
	return args.Int(0), args.Error(1)
}

// fakeSnapshot records what it was asked to write.
type fakeSnapshot struct {
	path   string
	err    error
	leads  []model.LeadRecord
	writes int
	log    *callLog
}

func (f *fakeSnapshot) Path() string { return f.path }

func (f *fakeSnapshot) Write(leads []model.LeadRecord) error {
	f.log.add("snapshot")
	f.writes++
	f.leads = leads
	return f.err
}

// fakeFailures collects dead-letter entries.
type fakeFailures struct {
	failed []model.FailedLead
}

func (f *fakeFailures) RecordFailure(_ context.Context, fl model.FailedLead) error {
	f.failed = append(f.failed, fl)
	return nil
}

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(c string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}
