package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-cli/internal/config"
	"github.com/sells-group/lead-cli/internal/model"
	"github.com/sells-group/lead-cli/internal/store"
)

// resetRunFlags restores the package-level flag values after a test.
func resetRunFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		runInput, runURLs, runNotion, runRetryFailed = "", nil, false, false
		runLimit, runSnapshot = 0, ""
		runNoOutreach, runDryRun, runHeadful = false, false, false
		runTags = nil
	})
}

func testConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{
		Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "leads.db"), Table: "leads"},
		Run:   config.RunConfig{SnapshotPath: "public/leads_output.json"},
		Lead:  config.LeadConfig{PlaceholderEmailDomain: "mockemail.com"},
	}
	cfg.Outreach.Enabled = true
	cfg.Browser.Headless = true
}

func sqliteStore(t *testing.T) store.Store {
	t.Helper()
	st, err := initStore(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestCheckSources(t *testing.T) {
	resetRunFlags(t)

	assert.Error(t, checkSources())

	runInput = "leads.json"
	assert.NoError(t, checkSources())

	runNotion = true
	assert.Error(t, checkSources())
}

func TestApplyRunFlags(t *testing.T) {
	testConfig(t)
	resetRunFlags(t)

	runSnapshot = "out/run.json"
	runNoOutreach = true
	runDryRun = true
	runHeadful = true
	applyRunFlags()

	assert.Equal(t, "out/run.json", cfg.Run.SnapshotPath)
	assert.False(t, cfg.Outreach.Enabled)
	assert.True(t, cfg.Outreach.DryRun)
	assert.False(t, cfg.Browser.Headless)
}

func TestApplyRunFlags_KeepsConfig(t *testing.T) {
	testConfig(t)
	resetRunFlags(t)

	applyRunFlags()

	assert.Equal(t, "public/leads_output.json", cfg.Run.SnapshotPath)
	assert.True(t, cfg.Outreach.Enabled)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadInputs_URLs(t *testing.T) {
	testConfig(t)
	resetRunFlags(t)
	runURLs = []string{"https://linkedin.com/in/a", "https://linkedin.com/in/b", "https://linkedin.com/in/c"}
	runLimit = 2

	leads, err := loadInputs(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []model.LeadInput{
		{URL: "https://linkedin.com/in/a"},
		{URL: "https://linkedin.com/in/b"},
	}, leads)
}

func TestLoadInputs_File(t *testing.T) {
	testConfig(t)
	resetRunFlags(t)
	runInput = filepath.Join(t.TempDir(), "leads.yaml")
	require.NoError(t, os.WriteFile(runInput, []byte("- https://linkedin.com/in/a\n"), 0o644))

	leads, err := loadInputs(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "https://linkedin.com/in/a", leads[0].URL)
}

func TestLoadInputs_FileError(t *testing.T) {
	testConfig(t)
	resetRunFlags(t)
	runInput = filepath.Join(t.TempDir(), "missing.json")

	_, err := loadInputs(context.Background(), nil)
	assert.Error(t, err)
}

func TestLoadInputs_NotionNeedsToken(t *testing.T) {
	testConfig(t)
	resetRunFlags(t)
	runNotion = true

	_, err := loadInputs(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion token is required")
}

func TestLoadInputs_RetryFailed(t *testing.T) {
	testConfig(t)
	resetRunFlags(t)
	st := sqliteStore(t)
	ctx := context.Background()

	require.NoError(t, st.RecordFailure(ctx, model.FailedLead{URL: "https://linkedin.com/in/a", Name: "Ann", Step: "extract", Error: "profile not found", FailedAt: time.Now()}))
	runRetryFailed = true

	leads, err := loadInputs(ctx, st)
	require.NoError(t, err)
	assert.Equal(t, []model.LeadInput{{URL: "https://linkedin.com/in/a", Name: "Ann"}}, leads)
}

func TestFailureTracker_ClearRecovered(t *testing.T) {
	testConfig(t)
	st := sqliteStore(t)
	ctx := context.Background()

	for _, u := range []string{"https://linkedin.com/in/a", "https://linkedin.com/in/b"} {
		require.NoError(t, st.RecordFailure(ctx, model.FailedLead{URL: u, Step: "extract", Error: "profile not found", FailedAt: time.Now()}))
	}

	tracker := newFailureTracker(st)
	// b fails again during the retry run.
	require.NoError(t, tracker.RecordFailure(ctx, model.FailedLead{URL: "https://linkedin.com/in/b", Step: "extract", Error: "profile not found", FailedAt: time.Now()}))

	tracker.clearRecovered(ctx, []model.LeadInput{
		{URL: "https://linkedin.com/in/a"},
		{URL: "https://linkedin.com/in/b"},
	})

	remaining, err := st.ListFailures(ctx, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "https://linkedin.com/in/b", remaining[0].URL)
	assert.Equal(t, 2, remaining[0].Attempts)
}
