// Package config provides configuration management for the Socratic
// clarifier.
//
// # Overview
//
// The config package uses Viper to load configuration from YAML files and
// environment variables. It provides a type-safe configuration structure with
// validation, default values, and automatic file creation.
//
// # Configuration File
//
// The configuration is stored at ~/.socratic/config.yaml and is automatically
// created with sensible defaults on first use. The file structure mirrors
// the Go structs defined in this package.
//
// # Environment Variables
//
// All configuration values can be overridden using environment variables
// with the SOCRATIC_ prefix. Nested fields are separated by underscores.
//
// Examples:
//   - SOCRATIC_LLM_DEFAULT_PROVIDER=lmstudio
//   - SOCRATIC_LOGGING_LEVEL=debug
//   - SOCRATIC_ECOSYSTEM_SAVE_EVERY=5
//
// # Usage Example
//
//	package main
//
//	import (
//	    "log"
//	    "github.com/normanking/socratic/internal/config"
//	)
//
//	func main() {
//	    // Load configuration
//	    cfg, err := config.Load()
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Ensure all directories exist
//	    if err := cfg.EnsureDirectories(); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Validate configuration
//	    if err := cfg.Validate(); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    // Use configuration
//	    provider := cfg.LLM.Providers[cfg.LLM.DefaultProvider]
//	    log.Printf("Using %s with model %s", cfg.LLM.DefaultProvider, provider.Model)
//	}
//
// # Configuration Sections
//
//   - LLM: Language model provider configuration (Ollama, LM Studio)
//   - Classifier: Paradigm classifier settings (model vs. heuristic)
//   - Questions: Socratic question generation settings
//   - Ecosystem: State persistence, history retention, archive settings
//   - Logging: Log level and output file configuration
//
// # Path Expansion
//
// The package automatically expands ~ to the user's home directory in
// all path configurations, making config files portable across systems.
//
// # Validation
//
// The Validate() method checks configuration for common errors:
//   - Provider existence and consistency
//   - Valid enum values (log level)
//   - Numeric range validation
//   - Required field presence
//
// # Thread Safety
//
// Config instances are not thread-safe. If you need concurrent access,
// wrap the config in a sync.RWMutex or create separate instances.
package config
