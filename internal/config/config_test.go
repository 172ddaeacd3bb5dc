// Package config tests.
package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5000, cfg.HTTPPort)
	assert.Equal(t, "mock", cfg.SearchMode)
	assert.Equal(t, 10*time.Second, cfg.SearchTimeout)
	assert.Equal(t, 60*time.Second, cfg.DecisionTimeout)
	assert.Equal(t, 90*time.Second, cfg.ExecutionTimeout)
	assert.Equal(t, "data/memory.json", cfg.MemoryFile)
	assert.Equal(t, "data/projects.json", cfg.ProjectsFile)
	assert.Equal(t, "openai/gpt-oss-20b:free", cfg.OpenRouterModel)
	assert.Equal(t, time.Duration(0), cfg.RunInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SEARCH_MODE", "http")
	t.Setenv("SEARCH_TIMEOUT", "3s")
	t.Setenv("RUN_INTERVAL", "15m")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "http", cfg.SearchMode)
	assert.Equal(t, 3*time.Second, cfg.SearchTimeout)
	assert.Equal(t, 15*time.Minute, cfg.RunInterval)
	assert.True(t, cfg.SchedulerEnabled())
}

func TestConfig_EnabledFlags(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.SupabaseEnabled())
	assert.False(t, cfg.SlackEnabled())
	assert.False(t, cfg.SchedulerEnabled())

	cfg.SupabaseURL = "https://test.supabase.co"
	cfg.SupabaseKey = "service-key"
	assert.True(t, cfg.SupabaseEnabled())

	cfg.SlackBotToken = "xoxb-test"
	cfg.SlackChannel = "#company-runs"
	assert.True(t, cfg.SlackEnabled())
}

func TestConfig_SearchKeyFallback(t *testing.T) {
	cfg := &Config{SerperAPIKey: "serper-key"}
	assert.Equal(t, "serper-key", cfg.SearchKey())

	cfg.SearchAPIKey = "direct-key"
	assert.Equal(t, "direct-key", cfg.SearchKey())
}

func TestLoadWithPrefix(t *testing.T) {
	t.Setenv("COMPANY_HTTP_PORT", "8181")
	cfg, err := LoadWithPrefix("COMPANY")
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.HTTPPort)
}
