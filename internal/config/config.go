package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	LinkedIn   LinkedInConfig   `yaml:"linkedin" mapstructure:"linkedin"`
	Browser    BrowserConfig    `yaml:"browser" mapstructure:"browser"`
	Login      LoginConfig      `yaml:"login" mapstructure:"login"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Evaluation EvaluationConfig `yaml:"evaluation" mapstructure:"evaluation"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Outreach   OutreachConfig   `yaml:"outreach" mapstructure:"outreach"`
	Lead       LeadConfig       `yaml:"lead" mapstructure:"lead"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Run        RunConfig        `yaml:"run" mapstructure:"run"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the durable lead store.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Table       string `yaml:"table" mapstructure:"table"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// LinkedInConfig holds site credentials and the login form selectors.
type LinkedInConfig struct {
	Email            string `yaml:"email" mapstructure:"email"`
	Password         string `yaml:"password" mapstructure:"password"`
	LoginURL         string `yaml:"login_url" mapstructure:"login_url"`
	UsernameSelector string `yaml:"username_selector" mapstructure:"username_selector"`
	PasswordSelector string `yaml:"password_selector" mapstructure:"password_selector"`
	SubmitSelector   string `yaml:"submit_selector" mapstructure:"submit_selector"`
}

// BrowserConfig configures the headless browser.
type BrowserConfig struct {
	Headless    bool   `yaml:"headless" mapstructure:"headless"`
	ExecPath    string `yaml:"exec_path" mapstructure:"exec_path"`
	UserDataDir string `yaml:"user_data_dir" mapstructure:"user_data_dir"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// LoginConfig controls the login retry policy.
type LoginConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	Backoff        time.Duration `yaml:"backoff" mapstructure:"backoff"`
	Timeout        time.Duration `yaml:"timeout" mapstructure:"timeout"`
	KeystrokeDelay time.Duration `yaml:"keystroke_delay" mapstructure:"keystroke_delay"`
}

// ExtractConfig configures profile extraction timeouts and selectors.
type ExtractConfig struct {
	NavigateTimeout time.Duration `yaml:"navigate_timeout" mapstructure:"navigate_timeout"`
	NameTimeout     time.Duration `yaml:"name_timeout" mapstructure:"name_timeout"`
	SettleDelay     time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
	NameSelector    string        `yaml:"name_selector" mapstructure:"name_selector"`
}

// EvaluationConfig configures lead scoring.
type EvaluationConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"`
	Model        string  `yaml:"model" mapstructure:"model"`
	Temperature  float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens    int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	MinBioLength int     `yaml:"min_bio_length" mapstructure:"min_bio_length"`
	DefaultScore float64 `yaml:"default_score" mapstructure:"default_score"`
	CacheSize    int     `yaml:"cache_size" mapstructure:"cache_size"`
	MaxAttempts  int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BreakerTrips int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
}

// OpenAIConfig holds settings for any OpenAI-compatible chat completions API.
type OpenAIConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// OutreachConfig configures message composition and the connection flow.
type OutreachConfig struct {
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`
	DryRun           bool          `yaml:"dry_run" mapstructure:"dry_run"`
	Threshold        float64       `yaml:"threshold" mapstructure:"threshold"`
	Model            string        `yaml:"model" mapstructure:"model"`
	Temperature      float64       `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens        int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxLength        int           `yaml:"max_length" mapstructure:"max_length"`
	FallbackTemplate string        `yaml:"fallback_template" mapstructure:"fallback_template"`
	NavigateTimeout  time.Duration `yaml:"navigate_timeout" mapstructure:"navigate_timeout"`
	ControlTimeout   time.Duration `yaml:"control_timeout" mapstructure:"control_timeout"`
	SettleDelay      time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"`
	KeystrokeDelay   time.Duration `yaml:"keystroke_delay" mapstructure:"keystroke_delay"`
	InviteSelector   string        `yaml:"invite_selector" mapstructure:"invite_selector"`
	AddNoteSelector  string        `yaml:"add_note_selector" mapstructure:"add_note_selector"`
	NoteSelector     string        `yaml:"note_selector" mapstructure:"note_selector"`
	SendSelector     string        `yaml:"send_selector" mapstructure:"send_selector"`
}

// LeadConfig configures record assembly.
type LeadConfig struct {
	PlaceholderEmailDomain string `yaml:"placeholder_email_domain" mapstructure:"placeholder_email_domain"`
}

// NotionConfig holds Notion API credentials and the lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
}

// RunConfig configures run-level files.
type RunConfig struct {
	SnapshotPath    string        `yaml:"snapshot_path" mapstructure:"snapshot_path"`
	LockPath        string        `yaml:"lock_path" mapstructure:"lock_path"`
	MetricsTextfile string        `yaml:"metrics_textfile" mapstructure:"metrics_textfile"`
	PushTimeout     time.Duration `yaml:"push_timeout" mapstructure:"push_timeout"`
}

// MonitoringConfig configures run alerts.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	// MinLeads is the smallest run the failure rate is judged on.
	MinLeads int `yaml:"min_leads" mapstructure:"min_leads"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to variable names used by earlier deployments.
var legacyEnv = map[string][]string{
	"linkedin.email":     {"VITE_LINKEDIN_EMAIL", "LINKEDIN_EMAIL"},
	"linkedin.password":  {"VITE_LINKEDIN_PASSWORD", "LINKEDIN_PASSWORD"},
	"openai.key":         {"OPENAI_API_KEY"},
	"anthropic.key":      {"ANTHROPIC_API_KEY"},
	"gemini.key":         {"GEMINI_API_KEY"},
	"store.database_url": {"DATABASE_URL"},
	"notion.token":       {"NOTION_TOKEN"},
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envPrefixed := "LEADS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envPrefixed}, names...)...); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("store.table", "leads")
	v.SetDefault("store.max_conns", 4)

	v.SetDefault("linkedin.login_url", "https://www.linkedin.com/login")
	v.SetDefault("linkedin.username_selector", "#username")
	v.SetDefault("linkedin.password_selector", "#password")
	v.SetDefault("linkedin.submit_selector", `button[type="submit"]`)

	v.SetDefault("browser.headless", true)

	v.SetDefault("login.max_attempts", 3)
	v.SetDefault("login.backoff", 5*time.Second)
	v.SetDefault("login.timeout", 20*time.Second)
	v.SetDefault("login.keystroke_delay", 150*time.Millisecond)

	v.SetDefault("extract.navigate_timeout", 20*time.Second)
	v.SetDefault("extract.name_timeout", 20*time.Second)
	v.SetDefault("extract.settle_delay", 6*time.Second)
	v.SetDefault("extract.name_selector", ".text-heading-xlarge")

	v.SetDefault("evaluation.provider", "openai")
	v.SetDefault("evaluation.temperature", 0.7)
	v.SetDefault("evaluation.max_tokens", 100)
	v.SetDefault("evaluation.min_bio_length", 80)
	v.SetDefault("evaluation.default_score", 1.0)
	v.SetDefault("evaluation.cache_size", 256)
	v.SetDefault("evaluation.max_attempts", 2)
	v.SetDefault("evaluation.breaker_failures", 5)

	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.rate_limit", 2.0)

	v.SetDefault("outreach.enabled", true)
	v.SetDefault("outreach.threshold", 7.0)
	v.SetDefault("outreach.temperature", 0.5)
	v.SetDefault("outreach.max_tokens", 100)
	v.SetDefault("outreach.max_length", 300)
	v.SetDefault("outreach.fallback_template",
		"Hi {name}, I'm with LinkWise (Superland) and admire your expertise. Let's connect to explore investment opportunities!")
	v.SetDefault("outreach.navigate_timeout", 20*time.Second)
	v.SetDefault("outreach.control_timeout", 12*time.Second)
	v.SetDefault("outreach.settle_delay", 6*time.Second)
	v.SetDefault("outreach.keystroke_delay", 50*time.Millisecond)
	v.SetDefault("outreach.invite_selector", `button[aria-label*="Invite"]`)
	v.SetDefault("outreach.add_note_selector", `button[aria-label="Add a note"]`)
	v.SetDefault("outreach.note_selector", "#connect-cta-form__invitation")
	v.SetDefault("outreach.send_selector", `button[aria-label="Send now"]`)

	v.SetDefault("lead.placeholder_email_domain", "mockemail.com")

	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")

	v.SetDefault("run.snapshot_path", "public/leads_output.json")
	v.SetDefault("run.lock_path", ".lead-cli.lock")
	v.SetDefault("run.push_timeout", 60*time.Second)

	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.min_leads", 3)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the fields required by the given command mode.
// "run" needs site and evaluation credentials on top of what "store" needs.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "run", "store":
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}

	if mode == "run" {
		if c.LinkedIn.Email == "" {
			errs = append(errs, "linkedin.email is required")
		}
		if c.LinkedIn.Password == "" {
			errs = append(errs, "linkedin.password is required")
		}
		switch c.Evaluation.Provider {
		case "openai":
			if c.OpenAI.Key == "" {
				errs = append(errs, "openai.key is required")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required")
			}
		case "gemini":
			if c.Gemini.Key == "" {
				errs = append(errs, "gemini.key is required")
			}
		default:
			errs = append(errs, fmt.Sprintf("evaluation.provider %q is not supported", c.Evaluation.Provider))
		}
		if c.Evaluation.DefaultScore < 0 || c.Evaluation.DefaultScore > 10 {
			errs = append(errs, "evaluation.default_score must be between 0 and 10")
		}
		if c.Outreach.Threshold < 0 || c.Outreach.Threshold > 10 {
			errs = append(errs, "outreach.threshold must be between 0 and 10")
		}
		if c.Monitoring.FailureRateThreshold < 0 || c.Monitoring.FailureRateThreshold > 1 {
			errs = append(errs, "monitoring.failure_rate_threshold must be between 0 and 1")
		}
		if c.Login.MaxAttempts < 1 {
			errs = append(errs, "login.max_attempts must be >= 1")
		}
	}

	if c.Salesforce.Enabled {
		if c.Salesforce.ClientID == "" {
			errs = append(errs, "salesforce.client_id is required")
		}
		if c.Salesforce.KeyPath == "" {
			errs = append(errs, "salesforce.key_path is required")
		}
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// defaultModels is the model used for each provider when evaluation.model is empty.
var defaultModels = map[string]string{
	"openai":    "gpt-4o-mini",
	"anthropic": "claude-haiku-4-5-20251001",
	"gemini":    "gemini-1.5-flash",
}

// EvaluationModel returns evaluation.model, or the provider's default model.
func (c *Config) EvaluationModel() string {
	if c.Evaluation.Model != "" {
		return c.Evaluation.Model
	}
	return defaultModels[c.Evaluation.Provider]
}

// OutreachModel returns outreach.model, falling back to the evaluation model.
func (c *Config) OutreachModel() string {
	if c.Outreach.Model != "" {
		return c.Outreach.Model
	}
	return c.EvaluationModel()
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
