package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"NewsRelay/internal/domain"
)

const (
	defaultTimezone     = "UTC"
	configPathEnv       = "NEWS_RELAY_CONFIG"
	databaseDriverEnv   = "DATABASE_DRIVER"
	databaseDSNEnv      = "DATABASE_DSN"
	lexicaURLEnv        = "LEXICA_API_URL"
	lexicaAPIKeyEnv     = "LEXICA_API_KEY"
	chatGPTAPIKeyEnv    = "CHATGPT_API_KEY"
	chatGPTModelEnv     = "CHATGPT_MODEL"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChannelEnv  = "TELEGRAM_CHANNEL_ID"
	adminAPIKeyEnv      = "ADMIN_API_KEY"
	logLevelEnv         = "LOG_LEVEL"
	defaultSystemPrompt = "You are a professional news summarizer. Your task is to provide a clear, engaging, and accurate 2-3 sentence summary that captures the key points and maintains the reader's interest. Focus on the most important facts while preserving the context and significance of the news."
)

// Supported values for Database.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Supported values for Summarizer.Kind.
const (
	SummarizerLexica = "lexica"
	SummarizerChat   = "chat"
	SummarizerNone   = "none"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Providers     ProviderConfig     `yaml:"providers"`
	Summarizer    SummarizerConfig   `yaml:"summarizer"`
	Notifications NotificationConfig `yaml:"notifications"`
	HTTP          HTTPConfig         `yaml:"http"`
	Sites         []SiteConfig       `yaml:"sites"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig describes where dedup records live.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines how often the pipeline runs.
type SchedulerConfig struct {
	Interval     time.Duration  `yaml:"interval"`
	RunOnStart   *bool          `yaml:"runOnStart"`
	AllowOverlap bool           `yaml:"allowOverlap"`
	Timezone     string         `yaml:"timezone"`
	location     *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ShouldRunOnStart reports whether activation triggers an immediate run.
func (s SchedulerConfig) ShouldRunOnStart() bool {
	return s.RunOnStart == nil || *s.RunOnStart
}

// PipelineConfig tunes per-run behaviour.
// Zero values keep the defaults, so a file cannot switch delivery pacing off.
type PipelineConfig struct {
	DeliveryDelay  time.Duration `yaml:"deliveryDelay"`
	FallbackLength int           `yaml:"fallbackLength"`
}

// ProviderConfig groups settings for article sources.
type ProviderConfig struct {
	Lexica LexicaConfig `yaml:"lexica"`
	RSS    RSSConfig    `yaml:"rss"`
}

// LexicaConfig points at the Lexica news API.
type LexicaConfig struct {
	BaseURL string        `yaml:"baseUrl"`
	APIKey  string        `yaml:"apiKey"`
	Timeout time.Duration `yaml:"timeout"`
}

// RSSConfig controls the feed scanner.
type RSSConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	UserAgent        string        `yaml:"userAgent"`
	ExtractContent   bool          `yaml:"extractContent"`
	MinContentLength int           `yaml:"minContentLength"`
}

// SummarizerConfig chooses the summarization backend.
type SummarizerConfig struct {
	Kind      string        `yaml:"kind"`
	MaxLength int           `yaml:"maxLength"`
	ChatGPT   ChatGPTConfig `yaml:"chatgpt"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Timeout      time.Duration `yaml:"timeout"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken   string        `yaml:"botToken"`
	ChatID     string        `yaml:"chatId"`
	APIBaseURL string        `yaml:"apiBaseUrl"`
	ButtonText string        `yaml:"buttonText"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"maxRetries"`
}

// HTTPConfig configures the admin control surface.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
	APIKey string `yaml:"apiKey"`
}

// SiteConfig describes a single source with its scanner strategy.
type SiteConfig struct {
	Name    string            `yaml:"name"`
	Scanner string            `yaml:"scanner"`
	URL     string            `yaml:"url"`
	Options map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
// An empty path falls back to NEWS_RELAY_CONFIG.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}

	return cfg
}

// Validate reports settings the process cannot run without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Notifications.Telegram.BotToken) == "" {
		return &domain.ConfigurationError{Field: "notifications.telegram.botToken", Reason: "is required"}
	}
	if strings.TrimSpace(c.Notifications.Telegram.ChatID) == "" {
		return &domain.ConfigurationError{Field: "notifications.telegram.chatId", Reason: "is required"}
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return &domain.ConfigurationError{Field: "database.driver", Reason: "unsupported driver " + c.Database.Driver}
	}
	if c.Database.DSN == "" {
		return &domain.ConfigurationError{Field: "database.dsn", Reason: "is required"}
	}

	if c.Scheduler.Interval < time.Minute {
		return &domain.ConfigurationError{Field: "scheduler.interval", Reason: "must be at least 1m"}
	}

	switch c.Summarizer.Kind {
	case SummarizerLexica, SummarizerChat, SummarizerNone:
	default:
		return &domain.ConfigurationError{Field: "summarizer.kind", Reason: "unsupported kind " + c.Summarizer.Kind}
	}

	if len(c.Sites) == 0 {
		return &domain.ConfigurationError{Field: "sites", Reason: "at least one site is required"}
	}
	for _, site := range c.Sites {
		if site.Name == "" || site.Scanner == "" {
			return &domain.ConfigurationError{Field: "sites", Reason: "name and scanner are required"}
		}
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(lexicaURLEnv); v != "" {
		c.Providers.Lexica.BaseURL = v
	}
	if v := os.Getenv(lexicaAPIKeyEnv); v != "" {
		c.Providers.Lexica.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChannelEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.Summarizer.ChatGPT.APIKey = v
	}
	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.Summarizer.ChatGPT.Model = v
	}

	if v := os.Getenv(adminAPIKeyEnv); v != "" {
		c.HTTP.APIKey = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.RunOnStart != nil {
		base.Scheduler.RunOnStart = override.Scheduler.RunOnStart
	}
	if override.Scheduler.AllowOverlap {
		base.Scheduler.AllowOverlap = true
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Pipeline.DeliveryDelay > 0 {
		base.Pipeline.DeliveryDelay = override.Pipeline.DeliveryDelay
	}
	if override.Pipeline.FallbackLength > 0 {
		base.Pipeline.FallbackLength = override.Pipeline.FallbackLength
	}

	if override.Providers.Lexica.BaseURL != "" {
		base.Providers.Lexica.BaseURL = override.Providers.Lexica.BaseURL
	}
	if override.Providers.Lexica.APIKey != "" {
		base.Providers.Lexica.APIKey = override.Providers.Lexica.APIKey
	}
	if override.Providers.Lexica.Timeout > 0 {
		base.Providers.Lexica.Timeout = override.Providers.Lexica.Timeout
	}

	if override.Providers.RSS.Timeout > 0 {
		base.Providers.RSS.Timeout = override.Providers.RSS.Timeout
	}
	if override.Providers.RSS.UserAgent != "" {
		base.Providers.RSS.UserAgent = override.Providers.RSS.UserAgent
	}
	if override.Providers.RSS.ExtractContent {
		base.Providers.RSS.ExtractContent = true
	}
	if override.Providers.RSS.MinContentLength > 0 {
		base.Providers.RSS.MinContentLength = override.Providers.RSS.MinContentLength
	}

	if override.Summarizer.Kind != "" {
		base.Summarizer.Kind = override.Summarizer.Kind
	}
	if override.Summarizer.MaxLength > 0 {
		base.Summarizer.MaxLength = override.Summarizer.MaxLength
	}
	if override.Summarizer.ChatGPT.Endpoint != "" {
		base.Summarizer.ChatGPT.Endpoint = override.Summarizer.ChatGPT.Endpoint
	}
	if override.Summarizer.ChatGPT.Model != "" {
		base.Summarizer.ChatGPT.Model = override.Summarizer.ChatGPT.Model
	}
	if override.Summarizer.ChatGPT.APIKey != "" {
		base.Summarizer.ChatGPT.APIKey = override.Summarizer.ChatGPT.APIKey
	}
	if override.Summarizer.ChatGPT.SystemPrompt != "" {
		base.Summarizer.ChatGPT.SystemPrompt = override.Summarizer.ChatGPT.SystemPrompt
	}
	if override.Summarizer.ChatGPT.Timeout > 0 {
		base.Summarizer.ChatGPT.Timeout = override.Summarizer.ChatGPT.Timeout
	}

	tg := override.Notifications.Telegram
	if tg.BotToken != "" {
		base.Notifications.Telegram.BotToken = tg.BotToken
	}
	if tg.ChatID != "" {
		base.Notifications.Telegram.ChatID = tg.ChatID
	}
	if tg.APIBaseURL != "" {
		base.Notifications.Telegram.APIBaseURL = tg.APIBaseURL
	}
	if tg.ButtonText != "" {
		base.Notifications.Telegram.ButtonText = tg.ButtonText
	}
	if tg.Timeout > 0 {
		base.Notifications.Telegram.Timeout = tg.Timeout
	}
	if tg.MaxRetries > 0 {
		base.Notifications.Telegram.MaxRetries = tg.MaxRetries
	}

	if override.HTTP.Listen != "" {
		base.HTTP.Listen = override.HTTP.Listen
	}
	if override.HTTP.APIKey != "" {
		base.HTTP.APIKey = override.HTTP.APIKey
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "news.db"},
		Scheduler: SchedulerConfig{
			Interval: 30 * time.Minute,
			Timezone: defaultTimezone,
			location: tz,
		},
		Pipeline: PipelineConfig{
			DeliveryDelay:  1500 * time.Millisecond,
			FallbackLength: 200,
		},
		Providers: ProviderConfig{
			Lexica: LexicaConfig{BaseURL: "https://api.lexica.com/v1", Timeout: 15 * time.Second},
			RSS: RSSConfig{
				Timeout:          20 * time.Second,
				UserAgent:        "NewsRelay/1.0",
				MinContentLength: 200,
			},
		},
		Summarizer: SummarizerConfig{
			Kind:      SummarizerLexica,
			MaxLength: 200,
			ChatGPT: ChatGPTConfig{
				Endpoint:     "https://api.openai.com/v1/chat/completions",
				Model:        "gpt-4o-mini",
				SystemPrompt: defaultSystemPrompt,
				Timeout:      20 * time.Second,
			},
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{
				APIBaseURL: "https://api.telegram.org",
				ButtonText: "Read Full Article",
				Timeout:    10 * time.Second,
				MaxRetries: 2,
			},
		},
		HTTP: HTTPConfig{Listen: ":8080"},
		Sites: []SiteConfig{
			{Name: "cnn", Scanner: "rss", URL: "http://rss.cnn.com/rss/cnn_topstories.rss"},
			{Name: "bbc", Scanner: "rss", URL: "https://feeds.bbci.co.uk/news/rss.xml"},
		},
	}
}
