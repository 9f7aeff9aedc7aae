package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "leads", cfg.Store.Table)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "https://www.linkedin.com/login", cfg.LinkedIn.LoginURL)
	assert.Equal(t, "#username", cfg.LinkedIn.UsernameSelector)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 3, cfg.Login.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Login.Backoff)
	assert.Equal(t, 150*time.Millisecond, cfg.Login.KeystrokeDelay)
	assert.Equal(t, 20*time.Second, cfg.Extract.NavigateTimeout)
	assert.Equal(t, 6*time.Second, cfg.Extract.SettleDelay)
	assert.Equal(t, "openai", cfg.Evaluation.Provider)
	assert.Empty(t, cfg.Evaluation.Model)
	assert.Equal(t, "gpt-4o-mini", cfg.EvaluationModel())
	assert.Equal(t, "gpt-4o-mini", cfg.OutreachModel())
	assert.InDelta(t, 0.7, cfg.Evaluation.Temperature, 0.001)
	assert.Equal(t, 100, cfg.Evaluation.MaxTokens)
	assert.Equal(t, 80, cfg.Evaluation.MinBioLength)
	assert.InDelta(t, 1.0, cfg.Evaluation.DefaultScore, 0.001)
	assert.True(t, cfg.Outreach.Enabled)
	assert.False(t, cfg.Outreach.DryRun)
	assert.InDelta(t, 7.0, cfg.Outreach.Threshold, 0.001)
	assert.Equal(t, 300, cfg.Outreach.MaxLength)
	assert.Equal(t, 12*time.Second, cfg.Outreach.ControlTimeout)
	assert.Contains(t, cfg.Outreach.FallbackTemplate, "{name}")
	assert.Equal(t, "mockemail.com", cfg.Lead.PlaceholderEmailDomain)
	assert.Equal(t, "public/leads_output.json", cfg.Run.SnapshotPath)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/leads
log:
  level: debug
  format: console
evaluation:
  default_score: 0
  min_bio_length: 50
outreach:
  settle_delay: 2s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/leads", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.InDelta(t, 0.0, cfg.Evaluation.DefaultScore, 0.001)
	assert.Equal(t, 50, cfg.Evaluation.MinBioLength)
	assert.Equal(t, 2*time.Second, cfg.Outreach.SettleDelay)
	// Defaults still apply for unset values
	assert.Equal(t, 12*time.Second, cfg.Outreach.ControlTimeout)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LEADS_STORE_DRIVER", "postgres")
	t.Setenv("LEADS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	chdirTemp(t)

	t.Setenv("VITE_LINKEDIN_EMAIL", "founder@example.com")
	t.Setenv("VITE_LINKEDIN_PASSWORD", "hunter2")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "founder@example.com", cfg.LinkedIn.Email)
	assert.Equal(t, "hunter2", cfg.LinkedIn.Password)
	assert.Equal(t, "sk-test", cfg.OpenAI.Key)
}

func TestLoadPrefixedEnvWinsOverLegacy(t *testing.T) {
	chdirTemp(t)

	t.Setenv("VITE_LINKEDIN_EMAIL", "legacy@example.com")
	t.Setenv("LEADS_LINKEDIN_EMAIL", "current@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "current@example.com", cfg.LinkedIn.Email)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validRun returns a Config that passes "run" validation.
func validRun() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "leads.db"
	cfg.LinkedIn.Email = "me@example.com"
	cfg.LinkedIn.Password = "secret"
	cfg.Evaluation.Provider = "openai"
	cfg.Evaluation.DefaultScore = 1
	cfg.OpenAI.Key = "sk-test"
	cfg.Outreach.Threshold = 7
	cfg.Login.MaxAttempts = 3
	return cfg
}

func TestValidateRun_AllPresent(t *testing.T) {
	assert.NoError(t, validRun().Validate("run"))
}

func TestValidateRun_MissingFields(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Evaluation.Provider = "openai"
	cfg.Login.MaxAttempts = 1

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "linkedin.email is required")
	assert.Contains(t, err.Error(), "linkedin.password is required")
	assert.Contains(t, err.Error(), "openai.key is required")
}

func TestValidateRun_ProviderKeys(t *testing.T) {
	tests := []struct {
		provider string
		set      func(*Config)
		wantErr  string
	}{
		{"anthropic", func(c *Config) { c.Anthropic.Key = "k" }, "anthropic.key is required"},
		{"gemini", func(c *Config) { c.Gemini.Key = "k" }, "gemini.key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := validRun()
			cfg.Evaluation.Provider = tt.provider

			err := cfg.Validate("run")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			tt.set(cfg)
			assert.NoError(t, cfg.Validate("run"))
		})
	}
}

func TestValidateRun_Bounds(t *testing.T) {
	cfg := validRun()
	cfg.Evaluation.DefaultScore = 11
	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation.default_score")

	cfg = validRun()
	cfg.Outreach.Threshold = -1
	err = cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outreach.threshold")

	cfg = validRun()
	cfg.Evaluation.Provider = "mistral"
	err = cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestValidateStore_IgnoresRunCredentials(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = "postgres://localhost/leads"

	assert.NoError(t, cfg.Validate("store"))
}

func TestValidateSalesforce(t *testing.T) {
	cfg := validRun()
	cfg.Salesforce.Enabled = true

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salesforce.client_id is required")
	assert.Contains(t, err.Error(), "salesforce.key_path is required")
}

func TestValidateUnknownMode(t *testing.T) {
	err := validRun().Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestModelDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.Evaluation.Provider = "anthropic"
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.EvaluationModel())

	cfg.Evaluation.Provider = "gemini"
	assert.Equal(t, "gemini-1.5-flash", cfg.OutreachModel())

	cfg.Evaluation.Model = "gemini-1.5-pro"
	assert.Equal(t, "gemini-1.5-pro", cfg.OutreachModel())

	cfg.Outreach.Model = "gemini-2.0-flash"
	assert.Equal(t, "gemini-2.0-flash", cfg.OutreachModel())
	assert.Equal(t, "gemini-1.5-pro", cfg.EvaluationModel())
}
