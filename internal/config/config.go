package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone     = "UTC"
	defaultPollSeconds  = 60
	defaultDatabasePath = "localeaudit.db"

	configPathEnv     = "LOCALEAUDIT_CONFIG"
	databasePathEnv   = "LOCALEAUDIT_DB_PATH"
	aiProviderEnv     = "AI_PROVIDER"
	aiModelEnv        = "AI_MODEL"
	aiAPIKeyEnv       = "AI_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	AI            AIConfig           `yaml:"ai"`
	Notifications NotificationConfig `yaml:"notifications"`
	Logging       LoggingConfig      `yaml:"logging"`
}

// DatabaseConfig describes the embedded SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SchedulerConfig defines the poll cadence of the recurrence scheduler.
type SchedulerConfig struct {
	PollSeconds int            `yaml:"pollSeconds"`
	Timezone    string         `yaml:"timezone"`
	location    *time.Location `yaml:"-"`
}

// PollInterval resolves the poll cadence as a duration.
func (s SchedulerConfig) PollInterval() time.Duration {
	if s.PollSeconds <= 0 {
		return defaultPollSeconds * time.Second
	}
	return time.Duration(s.PollSeconds) * time.Second
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// AIConfig defines how to contact the evaluation provider.
type AIConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	Endpoint string `yaml:"endpoint"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads .env, YAML configuration (if present), and env overrides.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
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

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(aiProviderEnv); v != "" {
		c.AI.Provider = v
	}
	if v := os.Getenv(aiModelEnv); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv(aiAPIKeyEnv); v != "" {
		c.AI.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
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
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Scheduler.PollSeconds > 0 {
		base.Scheduler.PollSeconds = override.Scheduler.PollSeconds
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.AI.Provider != "" {
		base.AI.Provider = override.AI.Provider
	}
	if override.AI.Model != "" {
		base.AI.Model = override.AI.Model
	}
	if override.AI.APIKey != "" {
		base.AI.APIKey = override.AI.APIKey
	}
	if override.AI.Endpoint != "" {
		base.AI.Endpoint = override.AI.Endpoint
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Database: DatabaseConfig{Path: defaultDatabasePath},
		Scheduler: SchedulerConfig{
			PollSeconds: defaultPollSeconds,
			Timezone:    defaultTimezone,
			location:    tz,
		},
		AI: AIConfig{
			Provider: "claude",
			Model:    "claude-sonnet-4-6",
			APIKey:   "",
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: ""},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}
