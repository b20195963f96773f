// Package config handles configuration loading for devcrew.
// It supports XDG config paths, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for devcrew.
type Config struct {
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	Generation GenerationConfig `mapstructure:"generation"`
	Retry      RetryConfig      `mapstructure:"retry"`
	Limits     LimitsConfig     `mapstructure:"limits"`
	Roles      RolesConfig      `mapstructure:"roles"`
	Export     ExportConfig     `mapstructure:"export"`
	Audit      AuditConfig      `mapstructure:"audit"`
}

// AnthropicConfig holds provider settings.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// GenerationConfig holds per-call generation settings.
type GenerationConfig struct {
	MaxTokens   int64         `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	StepTimeout time.Duration `mapstructure:"step_timeout"`
}

// RetryConfig holds the per-step retry policy.
type RetryConfig struct {
	// MaxRetries is the maximum client attempts per step.
	MaxRetries int `mapstructure:"max_retries"`
	// Backoff is the base delay between attempts.
	Backoff time.Duration `mapstructure:"backoff"`
	// BackoffPolicy is "fixed" or "exponential".
	BackoffPolicy string `mapstructure:"backoff_policy"`
	// BackoffMax caps the exponential delay.
	BackoffMax time.Duration `mapstructure:"backoff_max"`
}

// LimitsConfig bounds prompt sizes and cross-run concurrency.
type LimitsConfig struct {
	MaxArtifactContextChars int `mapstructure:"max_artifact_context_chars"`
	MaxTaskChars            int `mapstructure:"max_task_chars"`
	MaxConcurrentRuns       int `mapstructure:"max_concurrent_runs"`
}

// RolesConfig points at the role sequence definition.
type RolesConfig struct {
	// File is an optional roles YAML file replacing the built-in crew.
	File string `mapstructure:"file"`
	// Order optionally reorders or subsets the configured roles by name.
	Order []string `mapstructure:"order"`
}

// ExportConfig holds artifact export settings.
type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

// AuditConfig holds the optional run audit store settings.
type AuditConfig struct {
	// Enabled persists finished runs to the audit database.
	Enabled bool `mapstructure:"enabled"`
	// Path is the SQLite database path. Empty uses the XDG data dir.
	Path string `mapstructure:"path"`
}

// Load loads configuration with the following precedence (highest to
// lowest): environment variables, project config (.devcrew.yaml in the
// current directory or a parent), user config
// (~/.config/devcrew/config.yaml), built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "DEVCREW_MODEL")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// DefaultAuditDBPath returns the XDG data path for the audit store.
func DefaultAuditDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "devcrew", "audit.db")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("generation.max_tokens", 8192)
	v.SetDefault("generation.temperature", 0.7)
	v.SetDefault("generation.step_timeout", "5m")

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.backoff", "2s")
	v.SetDefault("retry.backoff_policy", "exponential")
	v.SetDefault("retry.backoff_max", "30s")

	v.SetDefault("limits.max_artifact_context_chars", 6000)
	v.SetDefault("limits.max_task_chars", 5000)
	v.SetDefault("limits.max_concurrent_runs", 4)

	v.SetDefault("roles.file", "")
	v.SetDefault("export.dir", "workspace")
	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.path", "")
}

func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "devcrew")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".devcrew"
	}
	return filepath.Join(home, ".config", "devcrew")
}

// findProjectConfig walks up from the working directory looking for
// .devcrew.yaml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".devcrew.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnv expands ${VAR} references in a value.
func expandEnv(s string) string {
	if strings.Contains(s, "${") {
		return os.ExpandEnv(s)
	}
	return s
}
