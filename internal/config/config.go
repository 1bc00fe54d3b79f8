// ABOUTME: Configuration loading and parsing for coven-chat
// ABOUTME: Supports YAML files with environment variable expansion, duration parsing, and defaults

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable that overrides the config location
const EnvConfigPath = "COVEN_CHAT_CONFIG"

// Storage drivers
const (
	DriverSQLite  = "sqlite"
	DriverSQLite3 = "sqlite3"
	DriverMemory  = "memory"
)

// Defaults applied to missing fields
const (
	DefaultEndpointURL    = "http://localhost:3000/api/chat"
	DefaultRequestTimeout = 2 * time.Minute
	DefaultSessionTimeout = 30 * time.Minute
	DefaultMaxMessages    = 10
	DefaultMaxSessions    = 20
	DefaultMessagesKey    = "coven-chat-messages"
	DefaultSessionsKey    = "coven-chat-sessions"
	DefaultLogLevel       = "warn"
	DefaultLogFormat      = "text"
)

// Config represents the complete coven-chat configuration
type Config struct {
	Endpoint EndpointConfig `yaml:"endpoint"`
	Storage  StorageConfig  `yaml:"storage"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// EndpointConfig holds the remote chat endpoint settings
type EndpointConfig struct {
	URL string `yaml:"url"`

	// RequestTimeout bounds the wait for response headers. The streamed
	// body is not limited by it.
	RequestTimeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	RequestTimeoutRaw string `yaml:"request_timeout"`
}

// StorageConfig holds the durable store settings
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	Path        string `yaml:"path"`
	MessagesKey string `yaml:"messages_key"`
	SessionsKey string `yaml:"sessions_key"`
}

// SessionConfig holds conversation lifecycle settings
type SessionConfig struct {
	Timeout     time.Duration `yaml:"-"`
	MaxMessages int           `yaml:"max_messages"`
	MaxSessions int           `yaml:"max_sessions"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, when set, receives a JSON copy of every log record
	File string `yaml:"file"`
}

// Default returns a configuration with every field set to its default
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Parse duration fields
	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads path, falling back to defaults when the file does
// not exist. Any other read or parse failure is returned.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// DefaultPath resolves the config file location: $COVEN_CHAT_CONFIG, then
// $XDG_CONFIG_HOME/coven/chat.yaml, then ~/.config/coven/chat.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return filepath.Join(configDir(), "chat.yaml")
}

// DefaultDataPath is where the SQLite store lives when storage.path is unset
func DefaultDataPath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "coven", "chat.db")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "coven-chat.db"
	}
	return filepath.Join(home, ".local", "share", "coven", "chat.db")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "coven")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "coven")
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Endpoint.URL == "" {
		c.Endpoint.URL = DefaultEndpointURL
	}
	if c.Endpoint.RequestTimeout == 0 {
		c.Endpoint.RequestTimeout = DefaultRequestTimeout
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverSQLite
	}
	if c.Storage.Path == "" && c.Storage.Driver != DriverMemory {
		c.Storage.Path = DefaultDataPath()
	}
	c.Storage.Path = expandHome(c.Storage.Path)
	if c.Storage.MessagesKey == "" {
		c.Storage.MessagesKey = DefaultMessagesKey
	}
	if c.Storage.SessionsKey == "" {
		c.Storage.SessionsKey = DefaultSessionsKey
	}
	if c.Session.Timeout == 0 {
		c.Session.Timeout = DefaultSessionTimeout
	}
	if c.Session.MaxMessages == 0 {
		c.Session.MaxMessages = DefaultMaxMessages
	}
	if c.Session.MaxSessions == 0 {
		c.Session.MaxSessions = DefaultMaxSessions
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Endpoint.URL == "" {
		return fmt.Errorf("endpoint.url is required")
	}
	if !strings.HasPrefix(c.Endpoint.URL, "http://") && !strings.HasPrefix(c.Endpoint.URL, "https://") {
		return fmt.Errorf("endpoint.url must be an http or https URL, got %q", c.Endpoint.URL)
	}
	if c.Endpoint.RequestTimeout < 0 {
		return fmt.Errorf("endpoint.request_timeout must not be negative")
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverSQLite3:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for driver %q", c.Storage.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver must be one of sqlite, sqlite3, memory; got %q", c.Storage.Driver)
	}
	if c.Storage.MessagesKey == c.Storage.SessionsKey {
		return fmt.Errorf("storage.messages_key and storage.sessions_key must differ")
	}

	if c.Session.Timeout < 0 {
		return fmt.Errorf("session.timeout must not be negative")
	}
	if c.Session.MaxMessages < 0 {
		return fmt.Errorf("session.max_messages must not be negative")
	}
	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("session.max_sessions must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Endpoint.RequestTimeoutRaw != "" {
		cfg.Endpoint.RequestTimeout, err = time.ParseDuration(cfg.Endpoint.RequestTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing request_timeout %q: %w", cfg.Endpoint.RequestTimeoutRaw, err)
		}
	}

	if cfg.Session.TimeoutRaw != "" {
		cfg.Session.Timeout, err = time.ParseDuration(cfg.Session.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.Session.TimeoutRaw, err)
		}
	}

	return nil
}
