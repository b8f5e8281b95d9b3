package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.Empty(t, cfg.Qdrant.Host)
	assert.Equal(t, 6334, cfg.Qdrant.Port)
	assert.Equal(t, 60*time.Second, cfg.Editor.GenerationTimeout)
	assert.Equal(t, StoreSQLite, cfg.Editor.StateStore)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Kafka.WriteTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfigDir(t *testing.T) {
	result := ConfigDir("/home/user/campaign")
	assert.Equal(t, "/home/user/campaign/.loremaster", result)
}

func TestConfigFilePath(t *testing.T) {
	result := ConfigFilePath("/home/user/campaign")
	assert.Equal(t, "/home/user/campaign/.loremaster/config.yaml", result)
}

func TestDatabasePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"relative", "loremaster.db", "/srv/.loremaster/loremaster.db"},
		{"absolute", "/var/lib/lm.db", "/var/lib/lm.db"},
		{"memory", ":memory:", ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.SQLite.Path = tt.path
			assert.Equal(t, tt.expected, cfg.DatabasePath("/srv"))
		})
	}
}

func TestWriteDefaultThenLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "")

	require.NoError(t, WriteDefault(dir))
	assert.True(t, Exists(dir))
	assert.Error(t, WriteDefault(dir), "existing config is not overwritten")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "loremaster init")
}

func TestLoadOverridesAndEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(ConfigDir(dir), 0755))
	yaml := `
llm:
  provider: ollama
  model: llama3
  base_url: http://localhost:11434
editor:
  generation_timeout: 5s
  state_store: redis
`
	require.NoError(t, os.WriteFile(filepath.Join(ConfigDir(dir), DefaultConfigFile), []byte(yaml), 0644))
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LOREMASTER_REDIS_ADDR", "redis:6379")
	t.Setenv("LOREMASTER_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOREMASTER_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Editor.GenerationTimeout)
	assert.Equal(t, StoreRedis, cfg.Editor.StateStore)
	assert.Equal(t, 10, cfg.Editor.RecentEvents, "unset keys keep defaults")
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "markov" }, "unknown llm provider"},
		{"unknown store", func(c *Config) { c.Editor.StateStore = "memcached" }, "unknown editor state_store"},
		{"negative timeout", func(c *Config) { c.Editor.GenerationTimeout = -time.Second }, "generation_timeout"},
		{"negative kafka timeout", func(c *Config) { c.Kafka.WriteTimeout = -time.Second }, "write_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OPENAI_API_KEY", "")
	cfg := Default()
	cfg.Server.Addr = ":9999"

	require.NoError(t, Write(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9999", loaded.Server.Addr)
}
