package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# Loremaster Configuration

llm:
  provider: openai          # openai or ollama
  model: gpt-4o-mini
  temperature: 0.8
  # base_url: http://localhost:11434 (ollama)
  # api_key: your-api-key (or set OPENAI_API_KEY env var)

embedder:
  provider: openai
  model: text-embedding-3-small

qdrant:
  # host: localhost         # leave unset to disable narrative memory
  port: 6334
  collection: loremaster_events

sqlite:
  path: loremaster.db

editor:
  generation_timeout: 60s
  state_store: sqlite       # sqlite or redis
  recent_events: 10
  recall_limit: 3
  snapshot_events: 50
  evolution: false
  evolution_queue: 64

redis:
  addr: localhost:6379
  ttl: 24h

kafka:
  # brokers: [localhost:9092] (or set LOREMASTER_KAFKA_BROKERS)
  topic: loremaster.notifications
  write_timeout: 5s

server:
  addr: ":8080"

log:
  level: info
  encoding: console
`

// WriteDefault creates the .loremaster directory and writes a default config file.
func WriteDefault(basePath string) error {
	configDir := ConfigDir(basePath)
	configFile := ConfigFilePath(basePath)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Write writes the given config to the config file.
func Write(basePath string, cfg *Config) error {
	configDir := filepath.Join(basePath, DefaultConfigDir)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(ConfigFilePath(basePath), data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
