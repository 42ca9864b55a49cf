package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/normanking/socratic/internal/llm"
)

// Config holds all application configuration for the Socratic clarifier.
// It is loaded from ~/.socratic/config.yaml and can be overridden by
// environment variables.
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm"`
	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Questions  QuestionsConfig  `mapstructure:"questions" yaml:"questions"`
	Ecosystem  EcosystemConfig  `mapstructure:"ecosystem" yaml:"ecosystem"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig contains configuration for Language Model providers.
type LLMConfig struct {
	// DefaultProvider specifies which provider to use by default ("ollama" or "lmstudio")
	DefaultProvider string `mapstructure:"default_provider" yaml:"default_provider"`
	// Providers maps provider names to their specific configuration
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers"`
}

// ProviderConfig contains configuration for a specific LLM provider.
type ProviderConfig struct {
	// Endpoint is the API endpoint URL
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	// APIKey is the authentication key, if the provider requires one
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// Model is the specific model to use with this provider
	Model string `mapstructure:"model" yaml:"model,omitempty"`
	// Temperature is the default sampling temperature
	Temperature float64 `mapstructure:"temperature" yaml:"temperature,omitempty"`
	// MaxTokens is the default completion budget
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens,omitempty"`
	// TimeoutSec bounds each HTTP request (default: 60)
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec,omitempty"`
	// MaxRetries is how many times a failed request is retried with
	// exponential backoff (default: 2)
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries,omitempty"`
}

// ToProviderConfig converts the section into the llm package's config,
// filling provider defaults for anything left unset.
func (p ProviderConfig) ToProviderConfig(name string) *llm.ProviderConfig {
	cfg := llm.DefaultConfig(name)
	if p.Endpoint != "" {
		cfg.Endpoint = p.Endpoint
	}
	if p.APIKey != "" {
		cfg.APIKey = p.APIKey
	}
	if p.Model != "" {
		cfg.Model = p.Model
	}
	if p.Temperature > 0 {
		cfg.Temperature = p.Temperature
	}
	if p.MaxTokens > 0 {
		cfg.MaxTokens = p.MaxTokens
	}
	if p.TimeoutSec > 0 {
		cfg.Timeout = time.Duration(p.TimeoutSec) * time.Second
	}
	if p.MaxRetries > 0 {
		cfg.MaxRetries = p.MaxRetries
	}
	return cfg
}

// ClassifierConfig controls the paradigm classifier.
type ClassifierConfig struct {
	// UseModel enables the model-backed classification path; the keyword
	// heuristic is always available as the fallback
	UseModel bool `mapstructure:"use_model" yaml:"use_model"`
	// Model overrides the provider's default model for classification calls
	Model string `mapstructure:"model" yaml:"model,omitempty"`
}

// QuestionsConfig controls Socratic question generation.
type QuestionsConfig struct {
	// Count bounds how many questions one analysis produces
	Count int `mapstructure:"count" yaml:"count"`
	// UseModel enables model-backed generation; templates are the fallback
	UseModel bool `mapstructure:"use_model" yaml:"use_model"`
	// Model overrides the provider's default model for generation calls
	Model string `mapstructure:"model" yaml:"model,omitempty"`
}

// EcosystemConfig controls the reflective ecosystem's persistence.
type EcosystemConfig struct {
	// StateDir is the directory holding the state snapshot and archive
	StateDir string `mapstructure:"state_dir" yaml:"state_dir"`
	// HistoryLimit bounds the in-memory question history ring
	HistoryLimit int `mapstructure:"history_limit" yaml:"history_limit"`
	// SaveEvery triggers a state save after this many feedback events
	SaveEvery int `mapstructure:"save_every" yaml:"save_every"`
	// ArchiveEnabled writes evicted history entries to the SQLite archive
	ArchiveEnabled bool `mapstructure:"archive_enabled" yaml:"archive_enabled"`
}

// StatePath returns the snapshot file location inside StateDir.
func (e EcosystemConfig) StatePath() string {
	return filepath.Join(expandPath(e.StateDir), "ecosystem_state.json")
}

// ArchivePath returns the history archive database location.
func (e EcosystemConfig) ArchivePath() string {
	return filepath.Join(expandPath(e.StateDir), "history.db")
}

// LoggingConfig contains configuration for application logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error")
	Level string `mapstructure:"level" yaml:"level"`
	// File is the path to the log file
	File string `mapstructure:"file" yaml:"file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".socratic")

	return &Config{
		LLM: LLMConfig{
			DefaultProvider: "ollama",
			Providers: map[string]ProviderConfig{
				"ollama": {
					Endpoint: "http://localhost:11434",
					Model:    "llama3.2",
				},
				"lmstudio": {
					Endpoint: "http://localhost:1234",
					Model:    "local-model",
				},
			},
		},
		Classifier: ClassifierConfig{
			UseModel: true,
		},
		Questions: QuestionsConfig{
			Count:    3,
			UseModel: true,
		},
		Ecosystem: EcosystemConfig{
			StateDir:       dataDir,
			HistoryLimit:   500,
			SaveEvery:      10,
			ArchiveEnabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dataDir, "logs", "socratic.log"),
		},
	}
}

// Load reads configuration from the default location
// (~/.socratic/config.yaml) and merges with environment variables. If no
// config file exists, it creates one with default values.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".socratic", "config.yaml")
	return LoadFromPath(configPath)
}

// LoadFromPath reads configuration from a specific file path and merges
// with environment variables. If the file doesn't exist, it creates one
// with default values.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := writeConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Enable environment variable overrides
	// Example: SOCRATIC_LLM_DEFAULT_PROVIDER
	v.SetEnvPrefix("SOCRATIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Ecosystem.StateDir = expandPath(cfg.Ecosystem.StateDir)
	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills in missing values so a sparse hand-written config
// still yields a working setup.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.LLM.DefaultProvider == "" {
		c.LLM.DefaultProvider = defaults.LLM.DefaultProvider
	}
	if len(c.LLM.Providers) == 0 {
		c.LLM.Providers = defaults.LLM.Providers
	}
	if c.Questions.Count == 0 {
		c.Questions.Count = defaults.Questions.Count
	}
	if c.Ecosystem.StateDir == "" {
		c.Ecosystem.StateDir = defaults.Ecosystem.StateDir
	}
	if c.Ecosystem.HistoryLimit == 0 {
		c.Ecosystem.HistoryLimit = defaults.Ecosystem.HistoryLimit
	}
	if c.Ecosystem.SaveEvery == 0 {
		c.Ecosystem.SaveEvery = defaults.Ecosystem.SaveEvery
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaults.Logging.Level
	}
}

// Save writes the current configuration to the default config file location.
func (c *Config) Save() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".socratic", "config.yaml")
	return c.SaveToPath(configPath)
}

// SaveToPath writes the current configuration to a specific file path.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return writeConfigFile(path, c)
}

// GetDataDir returns the data directory path (~/.socratic).
func (c *Config) GetDataDir() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".socratic")
}

// GetConfigPath returns the full path to the config file.
func (c *Config) GetConfigPath() string {
	return filepath.Join(c.GetDataDir(), "config.yaml")
}

// EnsureDirectories creates all directories the application writes to.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.GetDataDir(),
		expandPath(c.Ecosystem.StateDir),
		filepath.Dir(c.Logging.File),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Validate checks the configuration for common errors and inconsistencies.
func (c *Config) Validate() error {
	if c.LLM.DefaultProvider == "" {
		return fmt.Errorf("llm.default_provider cannot be empty")
	}

	if _, exists := c.LLM.Providers[c.LLM.DefaultProvider]; !exists {
		return fmt.Errorf("default provider '%s' not found in providers map", c.LLM.DefaultProvider)
	}

	if c.Questions.Count < 1 || c.Questions.Count > 10 {
		return fmt.Errorf("questions.count must be between 1 and 10")
	}

	if c.Ecosystem.HistoryLimit < 1 {
		return fmt.Errorf("ecosystem.history_limit must be positive")
	}

	if c.Ecosystem.SaveEvery < 1 {
		return fmt.Errorf("ecosystem.save_every must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	return nil
}

// writeConfigFile writes a Config struct to a YAML file.
// Uses gopkg.in/yaml.v3 directly to ensure proper tag-based serialization.
func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to the user's home directory in a path string.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[1:])
	}
	return path
}
