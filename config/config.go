// Package config loads service configuration from TOML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the full service configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	NATS      NATSConfig      `toml:"nats"`
	LLM       LLMConfig       `toml:"llm"`
	Toolchain ToolchainConfig `toml:"toolchain"`
	Knowledge KnowledgeConfig `toml:"knowledge"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// ListenAddr is the host:port the API binds to.
	ListenAddr string `toml:"listen_addr"`

	// ReadTimeout and WriteTimeout bound request handling.
	ReadTimeout  duration `toml:"read_timeout"`
	WriteTimeout duration `toml:"write_timeout"`
}

// LoggingConfig configures console output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// NATSConfig configures the optional NATS backend. When URL is empty
// the service runs with in-memory checkpoints and bus.
type NATSConfig struct {
	URL              string   `toml:"url"`
	Name             string   `toml:"name"`
	CheckpointBucket string   `toml:"checkpoint_bucket"`
	ConnectTimeout   duration `toml:"connect_timeout"`
}

// LLMConfig configures the OpenAI-compatible completion backend.
type LLMConfig struct {
	// BaseURL points at any OpenAI-compatible endpoint
	// (e.g. https://openrouter.ai/api/v1).
	BaseURL string `toml:"base_url"`

	// Model is the default model identifier.
	Model string `toml:"model"`

	// MaxTokens caps completion length. 0 uses the backend default.
	MaxTokens int `toml:"max_tokens"`

	// Temperature for sampling. Negative means backend default.
	Temperature float64 `toml:"temperature"`
}

// ToolchainConfig configures the content-generation bridges.
type ToolchainConfig struct {
	// OutputDir is where bridges write generated artifacts.
	OutputDir string `toml:"output_dir"`

	// QueueSize bounds pending bridge requests.
	QueueSize int `toml:"queue_size"`

	// RequestTimeout bounds a single bridge operation.
	RequestTimeout duration `toml:"request_timeout"`
}

// KnowledgeConfig configures the document index.
type KnowledgeConfig struct {
	// IndexPath is the on-disk index location. Empty means in-memory.
	IndexPath string `toml:"index_path"`

	// ChunkSize is the target chunk length in characters.
	ChunkSize int `toml:"chunk_size"`
}

// duration wraps time.Duration for TOML decoding of "5s" style values.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// Duration returns the underlying time.Duration.
func (d duration) Duration() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			ListenAddr:   ":8000",
			ReadTimeout:  duration(15 * time.Second),
			WriteTimeout: duration(30 * time.Second),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		NATS: NATSConfig{
			CheckpointBucket: "taskmesh-checkpoints",
			ConnectTimeout:   duration(5 * time.Second),
		},
		LLM: LLMConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "deepseek/deepseek-chat",
			Temperature: -1,
		},
		Toolchain: ToolchainConfig{
			OutputDir:      "generated_assets",
			QueueSize:      64,
			RequestTimeout: duration(30 * time.Second),
		},
		Knowledge: KnowledgeConfig{
			ChunkSize: 1200,
		},
	}
}

// StandardPaths returns the configuration file locations in order of
// priority.
func StandardPaths() []string {
	paths := []string{"taskmesh.toml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "taskmesh", "config.toml"))
	}
	return paths
}

// Load reads configuration from the first standard location that
// exists, applying defaults for everything left unset. A missing file
// is not an error; defaults are returned.
func Load() (Config, string, error) {
	for _, path := range StandardPaths() {
		if _, err := os.Stat(path); err == nil {
			cfg, err := LoadFile(path)
			return cfg, path, err
		}
	}
	return Default(), "", nil
}

// LoadFile reads configuration from a specific file over defaults.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail far from here.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Toolchain.QueueSize <= 0 {
		return fmt.Errorf("toolchain.queue_size must be positive")
	}
	if c.Knowledge.ChunkSize <= 0 {
		return fmt.Errorf("knowledge.chunk_size must be positive")
	}
	return nil
}
