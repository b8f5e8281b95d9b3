// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for loremaster configuration.
	DefaultConfigDir = ".loremaster"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultDatabaseFile is the default SQLite file name inside the config dir.
	DefaultDatabaseFile = "loremaster.db"
)

// Editor state backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	LLM      LLMConfig      `yaml:"llm,omitempty"`
	Embedder EmbedderConfig `yaml:"embedder,omitempty"`
	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Editor   EditorConfig   `yaml:"editor,omitempty"`
	Redis    RedisConfig    `yaml:"redis,omitempty"`
	Kafka    KafkaConfig    `yaml:"kafka,omitempty"`
	Server   ServerConfig   `yaml:"server,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

// LLMConfig holds configuration for the narrative provider.
type LLMConfig struct {
	// Provider is openai or ollama.
	Provider    string  `yaml:"provider,omitempty"`
	Model       string  `yaml:"model,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float32 `yaml:"temperature,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
}

// QdrantConfig holds configuration for the narrative memory index.
// An empty Host disables narrative memory.
type QdrantConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite entity store.
type SQLiteConfig struct {
	// Path is the database file. Relative paths resolve against the config dir.
	Path string `yaml:"path,omitempty"`
}

// EditorConfig tunes the editorial engine.
type EditorConfig struct {
	GenerationTimeout time.Duration `yaml:"generation_timeout,omitempty"`
	// StateStore is sqlite or redis.
	StateStore        string        `yaml:"state_store,omitempty"`
	RecentEvents      int           `yaml:"recent_events,omitempty"`
	RecallLimit       int           `yaml:"recall_limit,omitempty"`
	SnapshotEvents    int           `yaml:"snapshot_events,omitempty"`
	// Evolution enables relationship change proposals after each commit.
	Evolution         bool          `yaml:"evolution,omitempty"`
	EvolutionQueue    int           `yaml:"evolution_queue,omitempty"`
}

// RedisConfig holds configuration for the redis editor state store.
type RedisConfig struct {
	Addr     string        `yaml:"addr,omitempty"`
	Password string        `yaml:"password,omitempty"`
	DB       int           `yaml:"db,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
}

// KafkaConfig holds configuration for the notification stream.
// No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers,omitempty"`
	Topic   string   `yaml:"topic,omitempty"`
	// WriteTimeout bounds each background write to the brokers.
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// ServerConfig holds configuration for the HTTP and WebSocket server.
type ServerConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	// Encoding is json or console.
	Encoding string `yaml:"encoding,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.8,
		},
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Port:       6334,
			Collection: "loremaster_events",
		},
		SQLite: SQLiteConfig{
			Path: DefaultDatabaseFile,
		},
		Editor: EditorConfig{
			GenerationTimeout: 60 * time.Second,
			StateStore:        StoreSQLite,
			RecentEvents:      10,
			RecallLimit:       3,
			EvolutionQueue:    64,
			SnapshotEvents:    50,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  24 * time.Hour,
		},
		Kafka: KafkaConfig{
			Topic:        "loremaster.notifications",
			WriteTimeout: 5 * time.Second,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load loads configuration from the .loremaster directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'loremaster init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if c.LLM.APIKey == "" {
			c.LLM.APIKey = key
		}
		if c.Embedder.APIKey == "" {
			c.Embedder.APIKey = key
		}
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" {
		if c.Qdrant.APIKey == "" {
			c.Qdrant.APIKey = key
		}
	}
	if addr := os.Getenv("LOREMASTER_REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if brokers := os.Getenv("LOREMASTER_KAFKA_BROKERS"); brokers != "" {
		c.Kafka.Brokers = splitList(brokers)
	}
	if level := os.Getenv("LOREMASTER_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown llm provider %q (valid: openai, ollama)", c.LLM.Provider)
	}
	switch c.Editor.StateStore {
	case StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("unknown editor state_store %q (valid: sqlite, redis)", c.Editor.StateStore)
	}
	if c.Editor.GenerationTimeout < 0 {
		return fmt.Errorf("editor generation_timeout must not be negative")
	}
	if c.Kafka.WriteTimeout < 0 {
		return fmt.Errorf("kafka write_timeout must not be negative")
	}
	return nil
}

// DatabasePath resolves the SQLite path against the config dir.
func (c *Config) DatabasePath(basePath string) string {
	if c.SQLite.Path == ":memory:" || filepath.IsAbs(c.SQLite.Path) {
		return c.SQLite.Path
	}
	return filepath.Join(ConfigDir(basePath), c.SQLite.Path)
}

// ConfigDir returns the path to the .loremaster config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// Exists checks if a loremaster config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
