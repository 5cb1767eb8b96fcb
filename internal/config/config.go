// Copyright 2025 Soporte AVI Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	GLPI      GLPIConfig      `mapstructure:"glpi"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey    string `mapstructure:"apikey"`
	Endpoint  string `mapstructure:"endpoint"`
	ChatModel string `mapstructure:"chat_model"`
}

// GLPIConfig contains the ticketing backend configuration
type GLPIConfig struct {
	APIURL   string `mapstructure:"api_url"`
	AppToken string `mapstructure:"app_token"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// KnowledgeConfig contains knowledge base source and index settings
type KnowledgeConfig struct {
	ClientsDir   string `mapstructure:"clients_dir"`
	GuidesDir    string `mapstructure:"guides_dir"`
	DBPath       string `mapstructure:"db_path"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
}

// RetrievalConfig contains retrieval-specific settings
type RetrievalConfig struct {
	TopK           int `mapstructure:"top_k"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// ServerConfig contains the HTTP server configuration
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed for field '%s': %s", e.Field, e.Message)
}

// LoadOptions contains options for configuration loading
type LoadOptions struct {
	ConfigPath       string
	ValidateRequired bool
}

// Load loads configuration from file and environment variables.
// Environment variables take precedence over config file values.
func Load(configPath string) (*Config, error) {
	return LoadWithOptions(LoadOptions{
		ConfigPath:       configPath,
		ValidateRequired: true,
	})
}

// LoadWithOptions loads configuration with additional options
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if err := setConfigFile(v, opts.ConfigPath); err != nil {
		return nil, fmt.Errorf("failed to set config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SOPORTE_AVI")

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error if env vars are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	setEnvironmentMappings(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if opts.ValidateRequired {
		if err := validateConfig(&config); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("openai.chat_model", "gpt-4o-mini")

	v.SetDefault("knowledge.clients_dir", "./clientes_kb")
	v.SetDefault("knowledge.guides_dir", "./guias_kb")
	v.SetDefault("knowledge.db_path", "./indices.db")
	v.SetDefault("knowledge.chunk_size", 1500)
	v.SetDefault("knowledge.chunk_overlap", 300)

	v.SetDefault("retrieval.top_k", 5)
	v.SetDefault("retrieval.timeout_seconds", 15)

	v.SetDefault("server.listen_addr", ":8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// setConfigFile sets the configuration file path with fallback logic
func setConfigFile(v *viper.Viper, configPath string) error {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return fmt.Errorf("config file specified by CONFIG_PATH does not exist: %s", envPath)
		}
		v.SetConfigFile(envPath)
		return nil
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file does not exist: %s", configPath)
		}
		v.SetConfigFile(configPath)
		return nil
	}

	// Default fallback locations; missing files are tolerated because the
	// whole configuration can come from environment variables.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	return nil
}

// setEnvironmentMappings sets explicit environment variable mappings
func setEnvironmentMappings(v *viper.Viper) {
	envMappings := map[string]string{
		"OPENAI_API_KEY":  "openai.apikey",
		"OPENAI_ENDPOINT": "openai.endpoint",
		"GLPI_API_URL":    "glpi.api_url",
		"GLPI_APP_TOKEN":  "glpi.app_token",
		"GLPI_USERNAME":   "glpi.username",
		"GLPI_PASSWORD":   "glpi.password",
		"LOG_LEVEL":       "logging.level",
		"LOG_FORMAT":      "logging.format",
		"LOG_OUTPUT":      "logging.output",
	}

	for envVar, configKey := range envMappings {
		if value := os.Getenv(envVar); value != "" {
			v.Set(configKey, value)
		}
	}
}

// validateConfig validates the configuration for required fields and valid values
func validateConfig(config *Config) error {
	var errors []ValidationError

	if config.OpenAI.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "openai.apikey",
			Message: "OpenAI API key is required. Set via config file or OPENAI_API_KEY environment variable",
		})
	}

	if config.GLPI.APIURL == "" {
		errors = append(errors, ValidationError{
			Field:   "glpi.api_url",
			Message: "GLPI API URL is required. Set via config file or GLPI_API_URL environment variable",
		})
	}

	if config.GLPI.AppToken == "" {
		errors = append(errors, ValidationError{
			Field:   "glpi.app_token",
			Message: "GLPI app token is required. Set via config file or GLPI_APP_TOKEN environment variable",
		})
	}

	if config.Knowledge.ChunkSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "knowledge.chunk_size",
			Message: "chunk_size must be greater than 0",
		})
	}

	if config.Knowledge.ChunkOverlap < 0 || config.Knowledge.ChunkOverlap >= config.Knowledge.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "knowledge.chunk_overlap",
			Message: "chunk_overlap must be non-negative and smaller than chunk_size",
		})
	}

	if config.Retrieval.TopK <= 0 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.top_k",
			Message: "top_k must be greater than 0",
		})
	}

	if config.Retrieval.TimeoutSeconds <= 0 {
		errors = append(errors, ValidationError{
			Field:   "retrieval.timeout_seconds",
			Message: "timeout_seconds must be greater than 0",
		})
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, config.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("log level must be one of: %s", strings.Join(validLogLevels, ", ")),
		})
	}

	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, config.Logging.Format) {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("log format must be one of: %s", strings.Join(validLogFormats, ", ")),
		})
	}

	if config.Knowledge.DBPath == "" {
		errors = append(errors, ValidationError{
			Field:   "knowledge.db_path",
			Message: "index database path is required",
		})
	} else if err := validateDirectoryExists(filepath.Dir(config.Knowledge.DBPath)); err != nil {
		errors = append(errors, ValidationError{
			Field:   "knowledge.db_path",
			Message: fmt.Sprintf("index database directory does not exist: %s", filepath.Dir(config.Knowledge.DBPath)),
		})
	}

	if len(errors) > 0 {
		var errorMessages []string
		for _, err := range errors {
			errorMessages = append(errorMessages, err.Error())
		}
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errorMessages, "\n"))
	}

	return nil
}

// MaskSensitiveValues returns a copy of the config with sensitive values masked
func (c *Config) MaskSensitiveValues() *Config {
	masked := *c

	if masked.OpenAI.APIKey != "" {
		masked.OpenAI.APIKey = maskValue(masked.OpenAI.APIKey)
	}
	if masked.GLPI.AppToken != "" {
		masked.GLPI.AppToken = maskValue(masked.GLPI.AppToken)
	}
	if masked.GLPI.Password != "" {
		masked.GLPI.Password = strings.Repeat("*", len(masked.GLPI.Password))
	}

	return &masked
}

// maskValue masks sensitive values, showing only the first 8 characters
func maskValue(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:8] + strings.Repeat("*", len(value)-8)
}

// contains checks if a slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateDirectoryExists checks if a directory exists
func validateDirectoryExists(path string) error {
	if path == "" || path == "." {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	return nil
}

// WatchConfig enables configuration hot-reloading for development
func WatchConfig(configPath string, callback func(*Config)) error {
	v := viper.New()

	if err := setConfigFile(v, configPath); err != nil {
		return err
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		config, err := LoadWithOptions(LoadOptions{
			ConfigPath:       configPath,
			ValidateRequired: true,
		})
		if err != nil {
			fmt.Printf("Failed to reload config after change to %s: %v\n", e.Name, err)
			return
		}
		callback(config)
	})

	return nil
}
