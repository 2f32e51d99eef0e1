// Package config provides configuration management for tug, including
// loading configuration with precedence, environment variable overrides,
// and get/set/list operations for configuration values.
//
// Precedence, highest first: environment variables, the project config
// file (./tug.yaml), the user config file (~/.tug/config.yaml), built-in
// defaults. Command-line flags are applied by the caller on top of the
// loaded config. The environment key prefix is carried on the loaded
// config and threaded to every consumer; nothing reads a process-wide
// prefix variable.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dorcha-inc/tug/internal/core"
)

const (
	// DefaultKeyPrefix namespaces every environment key tug consumes or
	// publishes. Callers may override it per invocation; prefixes are
	// always normalized to upper case with a trailing underscore.
	DefaultKeyPrefix = "TUG_"

	// DefaultEnvName is the base name of the layered environment files
	// merged before delegation.
	DefaultEnvName = ".env"

	// DefaultDataDirName is the directory created under the base
	// directory when data_dir is not configured.
	DefaultDataDirName = ".tug"

	injectDirName     = "inject"
	storeDirName      = "store"
	projectConfigName = "tug.yaml"
	userConfigDirName = ".tug"
)

type TugLogFormat string

const (
	TugLogFormatPretty TugLogFormat = "pretty"
	TugLogFormatJSON   TugLogFormat = "json"
)

func ValidLogFormats() map[TugLogFormat]struct{} {
	return map[TugLogFormat]struct{}{
		TugLogFormatPretty: {},
		TugLogFormatJSON:   {},
	}
}

func IsValidLogFormat(format TugLogFormat) bool {
	_, ok := ValidLogFormats()[format]
	return ok
}

// TugConfig represents the tug configuration: the delegate binary
// candidates, the project name, the environment file base name, the
// managed directories, and logging behavior.
type TugConfig struct {
	Project    string       `yaml:"project,omitempty" mapstructure:"project"`                            // explicit project name passed to the delegate
	ComposeBin string       `yaml:"compose_bin,omitempty" mapstructure:"compose_bin"`                    // comma-separated delegate candidates, highest priority first
	EnvName    string       `yaml:"env_name,omitempty" mapstructure:"env_name" validate:"required"`      // base name of the layered environment files
	BaseDir    string       `yaml:"base_dir,omitempty" mapstructure:"base_dir" validate:"required"`      // working directory for env files, hooks and the delegate
	DataDir    string       `yaml:"data_dir,omitempty" mapstructure:"data_dir" validate:"required"`      // root of tug-managed state
	InjectDir  string       `yaml:"inject_dir,omitempty" mapstructure:"inject_dir" validate:"required"`  // files surfaced to delegate containers
	StoreDir   string       `yaml:"store_dir,omitempty" mapstructure:"store_dir" validate:"required"`    // delegate-produced state, wiped by clean
	LogFormat  TugLogFormat `yaml:"log_format,omitempty" mapstructure:"log_format"`                      // the log format, "pretty" or "json"
	Verbose    bool         `yaml:"verbose,omitempty" mapstructure:"verbose"`                            // enable debug logging

	// KeyPrefix comes from the command line or the default, never from
	// config files, so the files themselves are always discovered under
	// the same names regardless of prefix overrides.
	KeyPrefix string `yaml:"-" mapstructure:"-" validate:"required"`
}

// NormalizeKeyPrefix upper-cases a caller-supplied prefix and guarantees a
// single trailing underscore. A blank prefix falls back to DefaultKeyPrefix.
func NormalizeKeyPrefix(prefix string) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" || prefix == "_" {
		return DefaultKeyPrefix
	}
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}

// CandidateList splits the configured compose_bin value into individual
// candidate command lines, preserving priority order.
func (cfg *TugConfig) CandidateList() []string {
	if cfg.ComposeBin == "" {
		return nil
	}
	var candidates []string
	for _, entry := range strings.Split(cfg.ComposeBin, ",") {
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			candidates = append(candidates, trimmed)
		}
	}
	return candidates
}

// EnsureDirs creates the inject and store directories if they do not exist.
func (cfg *TugConfig) EnsureDirs() error {
	if err := core.EnsureDir(cfg.InjectDir); err != nil {
		return fmt.Errorf("failed to create inject directory: %w", err)
	}
	if err := core.EnsureDir(cfg.StoreDir); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	return nil
}

// ExportEnv publishes the resolved project name and directory paths into the
// process environment under the active key prefix so hooks and the delegate
// observe the same view as tug itself.
func (cfg *TugConfig) ExportEnv() {
	entries := []struct {
		suffix string
		value  string
	}{
		{"PROJECT", cfg.Project},
		{"BASE_DIR", cfg.BaseDir},
		{"DATA_DIR", cfg.DataDir},
		{"INJECT_DIR", cfg.InjectDir},
		{"STORE_DIR", cfg.StoreDir},
	}
	for _, entry := range entries {
		if entry.value == "" {
			continue
		}
		key := cfg.KeyPrefix + entry.suffix
		if err := os.Setenv(key, entry.value); err != nil {
			zap.L().Warn("Failed to export config value", zap.String("key", key), zap.Error(err))
		}
	}
}

// ConfigValue represents a configuration value with its source
type ConfigValue struct {
	Value  any
	Source string // "env", "project", "user", or "default"
}

// GetUserConfigPath returns the path to the user-specific config file (~/.tug/config.yaml)
func GetUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, userConfigDirName, "config.yaml"), nil
}

// GetProjectConfigPath returns the path to the project-specific config file (./tug.yaml)
// relative to the current working directory
func GetProjectConfigPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	return filepath.Join(cwd, projectConfigName), nil
}

// setupViper configures Viper with defaults, config file locations, and environment variables.
// If configPath is provided (non-empty), loads from that specific path instead of using precedence.
// keyPrefix must already be normalized; it selects the environment namespace.
func setupViper(configPath, keyPrefix string) error {
	viper.Reset()
	setViperDefaults()
	viper.SetEnvPrefix(strings.TrimSuffix(keyPrefix, "_"))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// If specific path provided, load only that file
	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	// Otherwise use precedence: user config first, then project config
	userPath, userErr := GetUserConfigPath()
	if userErr == nil {
		if _, userStatErr := os.Stat(userPath); userStatErr == nil {
			viper.SetConfigFile(userPath)
			if userReadErr := viper.ReadInConfig(); userReadErr != nil {
				zap.L().Debug("Failed to read user config file", zap.String("path", userPath), zap.Error(userReadErr))
			}
		}
	}

	projectPath, projectErr := GetProjectConfigPath()
	if projectErr == nil {
		if _, projectStatErr := os.Stat(projectPath); projectStatErr == nil {
			viper.SetConfigFile(projectPath)
			if projectReadErr := viper.MergeInConfig(); projectReadErr != nil {
				zap.L().Debug("Failed to merge project config file", zap.String("path", projectPath), zap.Error(projectReadErr))
			}
		}
	}

	return nil
}

// setViperDefaults sets default values in Viper
func setViperDefaults() {
	viper.SetDefault("project", "")
	viper.SetDefault("compose_bin", "")
	viper.SetDefault("env_name", DefaultEnvName)
	viper.SetDefault("base_dir", "")
	viper.SetDefault("data_dir", "")
	viper.SetDefault("inject_dir", "")
	viper.SetDefault("store_dir", "")
	viper.SetDefault("log_format", "pretty")
	viper.SetDefault("verbose", false)
}

// LoadConfig loads configuration with precedence: project config > user config > defaults.
// Environment variables override config file values. If configPath is provided, loads from
// that specific path instead. keyPrefix selects the environment namespace; pass "" for the
// default.
func LoadConfig(configPath, keyPrefix string) (*TugConfig, error) {
	prefix := NormalizeKeyPrefix(keyPrefix)
	if err := setupViper(configPath, prefix); err != nil {
		return nil, err
	}

	// Unmarshal from Viper
	cfg := &TugConfig{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.KeyPrefix = prefix

	if err := postProcessConfig(cfg); err != nil {
		return nil, err
	}

	// Validate
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// postProcessConfig expands ${VAR} references in the directory settings and
// resolves them to cleaned absolute paths. A relative data_dir is anchored
// at base_dir; relative inject_dir and store_dir are anchored at data_dir.
func postProcessConfig(cfg *TugConfig) error {
	dirs := []struct {
		name  string
		value *string
	}{
		{"base_dir", &cfg.BaseDir},
		{"data_dir", &cfg.DataDir},
		{"inject_dir", &cfg.InjectDir},
		{"store_dir", &cfg.StoreDir},
	}
	for _, dir := range dirs {
		if *dir.value == "" {
			continue
		}
		expanded, err := envsubst.String(*dir.value)
		if err != nil {
			return fmt.Errorf("failed to expand %s: %w", dir.name, err)
		}
		*dir.value = expanded
	}

	if cfg.BaseDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get current working directory: %w", err)
		}
		cfg.BaseDir = cwd
	}
	absBase, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory: %w", err)
	}
	cfg.BaseDir = absBase

	cfg.DataDir = resolveUnder(cfg.BaseDir, cfg.DataDir, DefaultDataDirName)
	cfg.InjectDir = resolveUnder(cfg.DataDir, cfg.InjectDir, injectDirName)
	cfg.StoreDir = resolveUnder(cfg.DataDir, cfg.StoreDir, storeDirName)

	return nil
}

// resolveUnder anchors value below root: an empty value falls back to
// fallback, a relative value is joined onto root, an absolute value passes
// through untouched.
func resolveUnder(root, value, fallback string) string {
	if value == "" {
		value = fallback
	}
	if !filepath.IsAbs(value) {
		value = filepath.Join(root, value)
	}
	return filepath.Clean(value)
}

var validate = validator.New()

// validateConfig validates the configuration after post-processing, when
// every directory field is populated.
func validateConfig(cfg *TugConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.LogFormat != "" && !IsValidLogFormat(cfg.LogFormat) {
		return fmt.Errorf("log_format must be one of: %s, got '%s'", core.JoinMapKeys(ValidLogFormats()), cfg.LogFormat)
	}

	return nil
}

// getValueSource determines the source of a config value
func getValueSource(key, keyPrefix string) string {
	// Check if environment variable is set
	envKey := keyPrefix + strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
	if os.Getenv(envKey) != "" {
		return "env"
	}

	// Check project config
	projectPath, err := GetProjectConfigPath()
	if err == nil {
		if _, projectStatErr := os.Stat(projectPath); projectStatErr == nil {
			if viper.IsSet(key) {
				// Viper doesn't track source, so we check if project config has the key
				projectViper := viper.New()
				projectViper.SetConfigFile(projectPath)
				if projectReadErr := projectViper.ReadInConfig(); projectReadErr == nil {
					if projectViper.IsSet(key) {
						return "project"
					}
				}
			}
		}
	}

	// Check user config
	userPath, userErr := GetUserConfigPath()
	if userErr == nil {
		if _, userStatErr := os.Stat(userPath); userStatErr == nil {
			userViper := viper.New()
			userViper.SetConfigFile(userPath)
			if userReadErr := userViper.ReadInConfig(); userReadErr == nil {
				if userViper.IsSet(key) {
					return "user"
				}
			}
		}
	}

	return "default"
}

// GetConfigValue retrieves a configuration value by key, checking environment variables first.
// Returns the value and its source ("env", "project", "user", or "default").
func GetConfigValue(key, keyPrefix string) (*ConfigValue, error) {
	prefix := NormalizeKeyPrefix(keyPrefix)
	if err := setupViper("", prefix); err != nil {
		return nil, err
	}

	// Viper handles defaults, so Get will return default if not set
	value := viper.Get(key)
	if value == nil {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}

	source := getValueSource(key, prefix)
	return &ConfigValue{Value: value, Source: source}, nil
}

// SetConfigValue sets a configuration value and saves it to the appropriate
// config file. Values are persisted as written, so the saved file keeps
// relative paths and ${VAR} references intact.
func SetConfigValue(key, value, keyPrefix string) error {
	if key == "log_format" && !IsValidLogFormat(TugLogFormat(value)) {
		return fmt.Errorf("log_format must be one of: %s, got '%s'", core.JoinMapKeys(ValidLogFormats()), value)
	}

	// Determine which config file to update
	projectPath, projectErr := GetProjectConfigPath()
	var configPath string

	if projectErr == nil {
		if _, projectStatErr := os.Stat(projectPath); projectStatErr == nil {
			configPath = projectPath
		}
	}

	if configPath == "" {
		// Use user config
		userPath, userErr := GetUserConfigPath()
		if userErr != nil {
			return fmt.Errorf("failed to get user config path: %w", userErr)
		}
		// Ensure directory exists
		configDir := filepath.Dir(userPath)
		// #nosec G301 -- config directory permissions 0755 are acceptable for user config directory
		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		configPath = userPath
	}

	// Load existing config using Viper
	if err := setupViper(configPath, NormalizeKeyPrefix(keyPrefix)); err != nil {
		return fmt.Errorf("failed to load existing config: %w", err)
	}

	// Set the value in Viper
	viper.Set(key, value)

	// Unmarshal into config struct
	cfg := &TugConfig{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Save to file
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// #nosec G306 -- config file permissions 0644 are acceptable for user config files
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ListConfig returns all configuration keys and values with their sources
func ListConfig(keyPrefix string) (map[string]*ConfigValue, error) {
	prefix := NormalizeKeyPrefix(keyPrefix)
	if err := setupViper("", prefix); err != nil {
		return nil, err
	}

	result := make(map[string]*ConfigValue)

	// Get all keys from Viper's AllSettings
	allSettings := viper.AllSettings()
	for key := range allSettings {
		configVal, err := GetConfigValue(key, prefix)
		if err != nil {
			continue
		}
		result[key] = configVal
	}

	return result, nil
}
