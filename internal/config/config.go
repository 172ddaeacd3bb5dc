package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort    int    `envconfig:"HTTP_PORT" default:"5000"`
	Debug       bool   `envconfig:"DEBUG" default:"true"`
	SecretKey   string `envconfig:"SECRET_KEY" default:"dev_secret_key_change_in_prod"`
	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"*"`

	// Auth for the API surface ("none" or "api-key"). The key itself is
	// SecretKey — a single static key passed through, nothing more.
	AuthMode string `envconfig:"AUTH_MODE" default:"none"`

	// Completion provider (OpenRouter)
	OpenRouterAPIKey string        `envconfig:"OPENROUTER_API_KEY"`
	OpenRouterModel  string        `envconfig:"OPENROUTER_MODEL" default:"openai/gpt-oss-20b:free"`
	DecisionTimeout  time.Duration `envconfig:"DECISION_TIMEOUT" default:"60s"`
	ExecutionTimeout time.Duration `envconfig:"EXECUTION_TIMEOUT" default:"90s"`

	// Search provider
	SearchMode    string        `envconfig:"SEARCH_MODE" default:"mock"` // "mock" or "http"
	SearchAPIURL  string        `envconfig:"SEARCH_API_URL"`
	SearchAPIKey  string        `envconfig:"SEARCH_API_KEY"`
	SerperAPIKey  string        `envconfig:"SERPER_API_KEY"`
	SearchTimeout time.Duration `envconfig:"SEARCH_TIMEOUT" default:"10s"`

	// Local file paths
	MemoryFile   string `envconfig:"MEMORY_FILE" default:"data/memory.json"`
	DataFile     string `envconfig:"DATA_FILE" default:"data/data.json"`
	ProjectsFile string `envconfig:"PROJECTS_FILE" default:"data/projects.json"`

	// Supabase (remote cache + history tables)
	SupabaseURL string `envconfig:"SUPABASE_URL"`
	SupabaseKey string `envconfig:"SUPABASE_KEY"`

	// Workflow rules file (optional company.yaml)
	RulesFile string `envconfig:"RULES_FILE"`

	// Scheduler — 0 disables the periodic full run
	RunInterval time.Duration `envconfig:"RUN_INTERVAL" default:"0"`

	// Slack (optional — run outcomes are announced when both are set)
	SlackBotToken string `envconfig:"COMPANY_SLACK_BOT_TOKEN"`
	SlackChannel  string `envconfig:"COMPANY_SLACK_CHANNEL"`
}

// SupabaseEnabled returns true if the remote store is configured.
func (c *Config) SupabaseEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// SlackEnabled returns true if Slack announcements are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

// SchedulerEnabled returns true if the periodic full run is configured.
func (c *Config) SchedulerEnabled() bool {
	return c.RunInterval > 0
}

// SearchKey returns the search API key, falling back to the Serper key.
func (c *Config) SearchKey() string {
	if c.SearchAPIKey != "" {
		return c.SearchAPIKey
	}
	return c.SerperAPIKey
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	return &cfg, nil
}
