package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsRelay/internal/domain"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(telegramTokenEnv, "")

	cfg := Load("")

	require.Equal(t, DriverSQLite, cfg.Database.Driver)
	require.Equal(t, "news.db", cfg.Database.DSN)
	require.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
	require.True(t, cfg.Scheduler.ShouldRunOnStart())
	require.Equal(t, 1500*time.Millisecond, cfg.Pipeline.DeliveryDelay)
	require.Equal(t, 200, cfg.Pipeline.FallbackLength)
	require.Equal(t, "Read Full Article", cfg.Notifications.Telegram.ButtonText)
	require.Len(t, cfg.Sites, 2)
	require.Equal(t, time.UTC.String(), cfg.Scheduler.Location().String())
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := writeTempConfig(t, `
logging:
  level: debug
scheduler:
  interval: 10m
  runOnStart: false
  timezone: Europe/Berlin
pipeline:
  deliveryDelay: 2s
notifications:
  telegram:
    botToken: file-token
    chatId: "@news"
sites:
  - name: lexica
    scanner: lexica
`)
	t.Setenv(telegramTokenEnv, "env-token")
	t.Setenv(databaseDSNEnv, "/tmp/relay.db")

	cfg := Load(path)

	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, 10*time.Minute, cfg.Scheduler.Interval)
	require.False(t, cfg.Scheduler.ShouldRunOnStart())
	require.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	require.Equal(t, 2*time.Second, cfg.Pipeline.DeliveryDelay)
	require.Equal(t, "env-token", cfg.Notifications.Telegram.BotToken)
	require.Equal(t, "@news", cfg.Notifications.Telegram.ChatID)
	require.Equal(t, "/tmp/relay.db", cfg.Database.DSN)
	require.Equal(t, []SiteConfig{{Name: "lexica", Scanner: "lexica"}}, cfg.Sites)
	require.Equal(t, 200, cfg.Pipeline.FallbackLength)
}

func TestLoadZeroDeliveryDelayKeepsPacing(t *testing.T) {
	path := writeTempConfig(t, `
pipeline:
  deliveryDelay: 0s
  fallbackLength: 0
`)

	cfg := Load(path)

	require.Equal(t, 1500*time.Millisecond, cfg.Pipeline.DeliveryDelay)
	require.Equal(t, 200, cfg.Pipeline.FallbackLength)
}

func TestLoadInvalidFileFallsBack(t *testing.T) {
	path := writeTempConfig(t, "scheduler: [oops")
	t.Setenv(telegramTokenEnv, "")

	cfg := Load(path)
	require.Equal(t, 30*time.Minute, cfg.Scheduler.Interval)
}

func TestLoadUnknownTimezone(t *testing.T) {
	path := writeTempConfig(t, "scheduler:\n  timezone: Mars/Olympus\n")

	cfg := Load(path)
	require.Equal(t, "UTC", cfg.Scheduler.Location().String())
}

func validConfig() Config {
	cfg := defaultConfig()
	cfg.Notifications.Telegram.BotToken = "token"
	cfg.Notifications.Telegram.ChatID = "@channel"
	return cfg
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	cases := map[string]func(*Config){
		"missing token":  func(c *Config) { c.Notifications.Telegram.BotToken = " " },
		"missing chat":   func(c *Config) { c.Notifications.Telegram.ChatID = "" },
		"bad driver":     func(c *Config) { c.Database.Driver = "mysql" },
		"empty dsn":      func(c *Config) { c.Database.DSN = "" },
		"short interval": func(c *Config) { c.Scheduler.Interval = time.Second },
		"bad summarizer": func(c *Config) { c.Summarizer.Kind = "magic" },
		"no sites":       func(c *Config) { c.Sites = nil },
		"unnamed site":   func(c *Config) { c.Sites = []SiteConfig{{Scanner: "rss"}} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *domain.ConfigurationError
			require.True(t, errors.As(err, &cfgErr))
		})
	}
}
