// Package config handles configuration loading and validation for Lemma.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigDirName is the directory under $HOME holding Lemma state.
	DefaultConfigDirName = ".lemma"
	// DefaultConfigFile is the configuration file name (without extension).
	DefaultConfigFile = "config"
	// DefaultConfigType is the configuration file type.
	DefaultConfigType = "yaml"

	// GeneratedDirName is the subdirectory of the notes directory holding
	// mirrored notes, chunk files, and synthesized notes.
	GeneratedDirName = "LEMMA_generated"
)

// Config holds all configuration for Lemma.
type Config struct {
	// NotesDirectory is the root directory of the user's markdown notes.
	NotesDirectory string `mapstructure:"notes_directory" yaml:"notes_directory"`
	// LLM contains chat-completion provider configuration.
	LLM LLMConfig `mapstructure:"llm" yaml:"llm"`
	// AGI contains AI-assisted note features configuration.
	AGI AGIConfig `mapstructure:"agi" yaml:"agi"`
	// Local configures a locally hosted model endpoint.
	Local LocalConfig `mapstructure:"local" yaml:"local"`
	// Embedding configures the embedding provider for the vector index.
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	// Live configures the autonomous synthesis loop.
	Live LiveConfig `mapstructure:"live" yaml:"live"`
}

// LLMConfig holds chat-completion provider configuration.
type LLMConfig struct {
	// Provider is the LLM provider (anthropic, gemini, local).
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Endpoint is an optional base URL override.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// APIKey is the API key for authentication.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	// Model is the model identifier.
	Model string `mapstructure:"model" yaml:"model"`
}

// AGIConfig holds AI-assisted note features configuration.
type AGIConfig struct {
	// Enabled turns the derived note collection on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// EnableChunking turns LLM-backed note chunking on.
	EnableChunking bool `mapstructure:"enable_chunking" yaml:"enable_chunking"`
	// EnableLiveMode turns the autonomous synthesis loop on.
	EnableLiveMode bool `mapstructure:"enable_live_mode" yaml:"enable_live_mode"`
}

// LocalConfig describes a locally hosted model endpoint.
type LocalConfig struct {
	// Enabled selects the local endpoint for the "local" provider.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Port is the local server port.
	Port int `mapstructure:"port" yaml:"port"`
	// Model is the local model name.
	Model string `mapstructure:"model" yaml:"model"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	// Provider is the embedding provider (ollama, genai).
	Provider string `mapstructure:"provider" yaml:"provider"`
	// Endpoint is the embedding server endpoint (ollama).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// Model is the embedding model name.
	Model string `mapstructure:"model" yaml:"model"`
	// APIKey is the API key (genai).
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
}

// LiveConfig holds autonomous synthesis loop configuration.
type LiveConfig struct {
	// PollIntervalSeconds is how often the state machine ticks.
	PollIntervalSeconds int `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	// MinGenerationIntervalSeconds is the minimum spacing between syntheses.
	MinGenerationIntervalSeconds int `mapstructure:"min_generation_interval_seconds" yaml:"min_generation_interval_seconds"`
	// NotesPerSynthesis is the maximum number of source notes per synthesis.
	NotesPerSynthesis int `mapstructure:"notes_per_synthesis" yaml:"notes_per_synthesis"`
}

// Dir returns the Lemma configuration directory. The LEMMA_HOME environment
// variable overrides the default of $HOME/.lemma.
func Dir() string {
	if dir := os.Getenv("LEMMA_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfigDirName
	}
	return filepath.Join(home, DefaultConfigDirName)
}

// Load loads configuration from file, environment variables, and defaults.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Check if a specific config file was set via CLI flag (stored in global viper)
	globalViper := viper.GetViper()
	if configFile := globalViper.GetString("config_file"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(Dir())
	}

	// Environment variables
	v.SetEnvPrefix("LEMMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid. An empty notes directory
// is allowed; operations that need one short-circuit at runtime instead.
func (c *Config) Validate() error {
	if c.NotesDirectory != "" {
		info, err := os.Stat(c.NotesDirectory)
		if err != nil {
			return fmt.Errorf("notes directory %q: %w", c.NotesDirectory, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("notes directory %q is not a directory", c.NotesDirectory)
		}
	}

	switch c.LLM.Provider {
	case "", "anthropic", "gemini", "local":
	default:
		return fmt.Errorf("llm provider must be 'anthropic', 'gemini', or 'local', got %q", c.LLM.Provider)
	}

	switch c.Embedding.Provider {
	case "", "ollama", "genai":
	default:
		return fmt.Errorf("embedding provider must be 'ollama' or 'genai', got %q", c.Embedding.Provider)
	}

	if c.Local.Port < 0 || c.Local.Port > 65535 {
		return fmt.Errorf("local port must be in [0, 65535], got %d", c.Local.Port)
	}

	return nil
}

// GeneratedDir returns the derived notes directory, or "" if no notes
// directory is configured.
func (c *Config) GeneratedDir() string {
	if c.NotesDirectory == "" {
		return ""
	}
	return filepath.Join(c.NotesDirectory, GeneratedDirName)
}

// SyncStatePath returns the path of the per-file sync state file.
func (c *Config) SyncStatePath() string {
	return filepath.Join(Dir(), "sync.state")
}

// VectorDir returns the directory holding the vector index.
func (c *Config) VectorDir() string {
	return filepath.Join(Dir(), "vector")
}

// LLMEndpoint resolves the effective base URL for the configured provider.
// For the local provider the endpoint defaults to the configured local port.
func (c *Config) LLMEndpoint() string {
	if c.LLM.Endpoint != "" {
		return c.LLM.Endpoint
	}
	if c.LLM.Provider == "local" && c.Local.Port != 0 {
		return fmt.Sprintf("http://localhost:%d", c.Local.Port)
	}
	return ""
}

// LLMModel resolves the effective model for the configured provider.
func (c *Config) LLMModel() string {
	if c.LLM.Provider == "local" && c.LLM.Model == "" {
		return c.Local.Model
	}
	return c.LLM.Model
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("notes_directory", "")

	v.SetDefault("llm.provider", "local")
	v.SetDefault("llm.model", "")

	v.SetDefault("agi.enabled", false)
	v.SetDefault("agi.enable_chunking", true)
	v.SetDefault("agi.enable_live_mode", false)

	v.SetDefault("local.enabled", true)
	v.SetDefault("local.port", 11434)
	v.SetDefault("local.model", "llama3.1")

	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.endpoint", "http://localhost:11434")
	v.SetDefault("embedding.model", "embeddinggemma")

	v.SetDefault("live.poll_interval_seconds", 5)
	v.SetDefault("live.min_generation_interval_seconds", 300)
	v.SetDefault("live.notes_per_synthesis", 3)
}
