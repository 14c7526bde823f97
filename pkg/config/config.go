// Package config loads and validates the wordcard configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default settings
const (
	DefaultSentenceNum    = 3
	DefaultDBPath         = "wordcard.db"
	DefaultLogFormat      = "console"
	DefaultLogLevel       = "info"
	DefaultMaxLogBackups  = 3
	DefaultMaxLogSizeMB   = 100
	DefaultServerAddr     = "127.0.0.1:7788"
	DefaultTimeoutSeconds = 10
	DefaultCacheSize      = 512
	maxConfigSize         = 10 * 1024 * 1024
)

// Config is the full application configuration.
type Config struct {
	Content   ContentConfig   `json:"content" yaml:"content"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Translate TranslateConfig `json:"translate" yaml:"translate"`
}

// ContentConfig holds the settings the page integration reacts to. Its
// JSON form is the payload of the `config` message.
type ContentConfig struct {
	Dblclick2Trigger bool   `json:"dblclick2trigger" yaml:"dblclick2trigger"`
	WithCtrlOrCmd    bool   `json:"withCtrlOrCmd" yaml:"withCtrlOrCmd"`
	Autocut          bool   `json:"autocut" yaml:"autocut"`
	SentenceNum      int    `json:"sentenceNum" yaml:"sentenceNum" validate:"min=0,max=50"`
	Version          string `json:"version,omitempty" yaml:"version,omitempty" validate:"omitempty,appversion"`
}

// LogConfig defines configuration for logging
type LogConfig struct {
	LogFile       string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	LogFormat     string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,logformat"`
	LogLevel      string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,loglevel"`
	MaxLogBackups int    `json:"max_log_backups,omitempty" yaml:"max_log_backups,omitempty" validate:"min=0"`
	MaxLogSizeMB  int    `json:"max_log_size_mb,omitempty" yaml:"max_log_size_mb,omitempty" validate:"min=0"`
}

// StorageConfig locates the vocabulary database.
type StorageConfig struct {
	DBPath string `json:"db_path" yaml:"db_path" validate:"required"`
}

// ServerConfig configures the HTTP API the extension talks to.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" validate:"required,hostname_port"`
	// Token, when set, must be presented as a bearer token.
	Token          string   `json:"token,omitempty" yaml:"token,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty" validate:"dive,required"`
}

// TranslateConfig configures word lookups.
type TranslateConfig struct {
	Endpoint       string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty" validate:"omitempty,url"`
	AudioURL       string            `json:"audio_url,omitempty" yaml:"audio_url,omitempty"`
	Params         map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds" validate:"min=1"`
	CacheSize      int               `json:"cache_size" yaml:"cache_size" validate:"min=0"`
	DictionaryPath string            `json:"dictionary_path,omitempty" yaml:"dictionary_path,omitempty"`
	DictionaryURL  string            `json:"dictionary_url,omitempty" yaml:"dictionary_url,omitempty" validate:"omitempty,url"`
}

// NewDefaultContentConfig returns the settings of a fresh install.
func NewDefaultContentConfig() ContentConfig {
	return ContentConfig{
		Dblclick2Trigger: true,
		WithCtrlOrCmd:    false,
		Autocut:          true,
		SentenceNum:      DefaultSentenceNum,
	}
}

// NewDefaultLogConfig creates default log configuration
func NewDefaultLogConfig() LogConfig {
	return LogConfig{
		LogFormat:     DefaultLogFormat,
		LogLevel:      DefaultLogLevel,
		MaxLogBackups: DefaultMaxLogBackups,
		MaxLogSizeMB:  DefaultMaxLogSizeMB,
	}
}

// NewDefaultConfig returns the configuration used when no file is found.
func NewDefaultConfig() *Config {
	return &Config{
		Content: NewDefaultContentConfig(),
		Log:     NewDefaultLogConfig(),
		Storage: StorageConfig{DBPath: DefaultDBPath},
		Server:  ServerConfig{Addr: DefaultServerAddr},
		Translate: TranslateConfig{
			TimeoutSeconds: DefaultTimeoutSeconds,
			CacheSize:      DefaultCacheSize,
		},
	}
}

// Load reads the configuration file chosen by GetConfigPath over the
// defaults and validates the result. Without a file the defaults are
// returned.
func Load(providedPath string) (*Config, error) {
	cfg := NewDefaultConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		if providedPath != "" {
			return nil, fmt.Errorf("config file %s does not exist", providedPath)
		}
		return cfg, nil
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", filePath, maxConfigSize)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file content: %w", err)
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *Config) error {
	switch filepath.Ext(filePath) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal JSON from '%s': %w", filePath, err)
		}
	}
	return nil
}
