package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv     = "FILING_SCANNER_CONFIG"
	databasePathEnv   = "DATABASE_PATH"
	userAgentEnv      = "SEC_USER_AGENT"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	polygonAPIKeyEnv  = "POLYGON_API_KEY"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Registry      RegistryConfig     `yaml:"registry"`
	RateLimit     RateLimitConfig    `yaml:"rateLimit"`
	Filters       FilterConfig       `yaml:"filters"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Analysis      AnalysisConfig     `yaml:"analysis"`
	Enrichment    EnrichmentConfig   `yaml:"enrichment"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration so YAML values like "120ms" parse.
type Duration time.Duration

// UnmarshalYAML decodes a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped standard duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// DatabaseConfig describes the SQLite database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RegistryConfig describes the upstream document registry endpoints.
type RegistryConfig struct {
	BaseURL   string `yaml:"baseUrl"`
	UserAgent string `yaml:"userAgent"`
	DocType   string `yaml:"docType"`
	PageSize  int    `yaml:"pageSize"`
	MaxOffset int    `yaml:"maxOffset"`
	BatchSize int    `yaml:"batchSize"`
}

// RateLimitConfig bounds the outbound request budget.
type RateLimitConfig struct {
	MinSpacing  Duration `yaml:"minSpacing"`
	BurstWindow Duration `yaml:"burstWindow"`
	BurstLimit  int      `yaml:"burstLimit"`
}

// FilterConfig restricts which discovered listings are worth processing.
type FilterConfig struct {
	AllowedItems []string `yaml:"allowedItems"`
	MinMarketCap float64  `yaml:"minMarketCap"`
}

// SchedulerConfig defines when recurring pipeline runs execute.
type SchedulerConfig struct {
	Interval Duration `yaml:"interval"`
	Timezone string   `yaml:"timezone"`
	location *time.Location
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

// AnalysisConfig defines how to contact the analysis collaborator.
type AnalysisConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// EnrichmentConfig defines the entity-metadata reference service.
type EnrichmentConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
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

	if v := os.Getenv(userAgentEnv); v != "" {
		c.Registry.UserAgent = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.Analysis.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.Analysis.Model = v
	}

	if v := os.Getenv(polygonAPIKeyEnv); v != "" {
		c.Enrichment.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Registry.BaseURL != "" {
		base.Registry.BaseURL = override.Registry.BaseURL
	}
	if override.Registry.UserAgent != "" {
		base.Registry.UserAgent = override.Registry.UserAgent
	}
	if override.Registry.DocType != "" {
		base.Registry.DocType = override.Registry.DocType
	}
	if override.Registry.PageSize > 0 {
		base.Registry.PageSize = override.Registry.PageSize
	}
	if override.Registry.MaxOffset > 0 {
		base.Registry.MaxOffset = override.Registry.MaxOffset
	}
	if override.Registry.BatchSize > 0 {
		base.Registry.BatchSize = override.Registry.BatchSize
	}

	if override.RateLimit.MinSpacing > 0 {
		base.RateLimit.MinSpacing = override.RateLimit.MinSpacing
	}
	if override.RateLimit.BurstWindow > 0 {
		base.RateLimit.BurstWindow = override.RateLimit.BurstWindow
	}
	if override.RateLimit.BurstLimit > 0 {
		base.RateLimit.BurstLimit = override.RateLimit.BurstLimit
	}

	if len(override.Filters.AllowedItems) > 0 {
		base.Filters.AllowedItems = override.Filters.AllowedItems
	}
	if override.Filters.MinMarketCap > 0 {
		base.Filters.MinMarketCap = override.Filters.MinMarketCap
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Analysis.Endpoint != "" {
		base.Analysis.Endpoint = override.Analysis.Endpoint
	}
	if override.Analysis.Model != "" {
		base.Analysis.Model = override.Analysis.Model
	}
	if override.Analysis.APIKey != "" {
		base.Analysis.APIKey = override.Analysis.APIKey
	}
	if override.Analysis.SystemPrompt != "" {
		base.Analysis.SystemPrompt = override.Analysis.SystemPrompt
	}

	if override.Enrichment.Endpoint != "" {
		base.Enrichment.Endpoint = override.Enrichment.Endpoint
	}
	if override.Enrichment.APIKey != "" {
		base.Enrichment.APIKey = override.Enrichment.APIKey
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "data/filings.db"},
		Registry: RegistryConfig{
			BaseURL:   "https://www.sec.gov",
			UserAgent: "FilingScanner/1.0",
			DocType:   "8-K",
			PageSize:  100,
			MaxOffset: 1000,
			BatchSize: 100,
		},
		RateLimit: RateLimitConfig{
			MinSpacing:  Duration(120 * time.Millisecond),
			BurstWindow: Duration(time.Second),
			BurstLimit:  8,
		},
		Filters: FilterConfig{
			AllowedItems: []string{
				"1.01", "1.03", "2.01", "2.02", "2.03", "3.01",
				"4.01", "4.02", "5.02", "5.03", "5.07", "8.01",
			},
			MinMarketCap: 1.0,
		},
		Scheduler: SchedulerConfig{Interval: Duration(time.Hour), Timezone: "UTC"},
		Analysis: AnalysisConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You analyze disclosure filing sections and respond with a single JSON object.",
		},
		Enrichment: EnrichmentConfig{Endpoint: "https://api.polygon.io"},
	}
}
