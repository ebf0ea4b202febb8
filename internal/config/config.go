// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	FallbackMessage = "message"
	FallbackError   = "error"
)

// Config holds all application configuration. Values come from defaults, then
// an optional YAML file named by CONFIG_FILE, then environment variables.
type Config struct {
	Port           string          `yaml:"port"`
	Debug          bool            `yaml:"debug"`
	Version        string          `yaml:"version"`
	AllowedOrigins []string        `yaml:"allowed_origins"`
	Anthropic      AnthropicConfig `yaml:"anthropic"`
	Chat           ChatConfig      `yaml:"chat"`
	Session        SessionConfig   `yaml:"session"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	// APIKeyParam names an SSM parameter holding the key. Used when APIKey is empty.
	APIKeyParam string `yaml:"api_key_param"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
}

type ChatConfig struct {
	MaxOutputTokens  int           `yaml:"max_output_tokens"`
	HistoryWindow    int           `yaml:"history_window"`
	MaxMessageLength int           `yaml:"max_message_length"`
	ProviderTimeout  time.Duration `yaml:"provider_timeout"`
	FallbackMode     string        `yaml:"fallback_mode"`
}

type SessionConfig struct {
	Store         string        `yaml:"store"`
	SQLitePath    string        `yaml:"sqlite_path"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	DynamoDBTable string        `yaml:"dynamodb_table"`
	TTL           time.Duration `yaml:"ttl"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Port:           "5000",
		Version:        "1.0.0",
		AllowedOrigins: []string{"*"},
		Anthropic: AnthropicConfig{
			Model: "claude-3-haiku-20240307",
		},
		Chat: ChatConfig{
			MaxOutputTokens:  1024,
			HistoryWindow:    6,
			MaxMessageLength: 4000,
			ProviderTimeout:  30 * time.Second,
			FallbackMode:     FallbackMessage,
		},
		Session: SessionConfig{
			Store:         "memory",
			SQLitePath:    "./data/sessions.db",
			RedisAddr:     "localhost:6379",
			PruneInterval: 5 * time.Minute,
		},
	}
}

// Load reads configuration from CONFIG_FILE (if set) and environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.Version = getEnv("APP_VERSION", c.Version)
	if origins, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
		c.AllowedOrigins = splitList(origins)
	}

	c.Anthropic.APIKey = getEnv("ANTHROPIC_API_KEY", c.Anthropic.APIKey)
	c.Anthropic.APIKeyParam = getEnv("ANTHROPIC_API_KEY_PARAM", c.Anthropic.APIKeyParam)
	c.Anthropic.BaseURL = getEnv("ANTHROPIC_BASE_URL", c.Anthropic.BaseURL)
	c.Anthropic.Model = getEnv("ANTHROPIC_MODEL", c.Anthropic.Model)

	c.Chat.MaxOutputTokens = getEnvInt("MAX_OUTPUT_TOKENS", c.Chat.MaxOutputTokens)
	c.Chat.HistoryWindow = getEnvInt("HISTORY_WINDOW", c.Chat.HistoryWindow)
	c.Chat.MaxMessageLength = getEnvInt("MAX_MESSAGE_LENGTH", c.Chat.MaxMessageLength)
	c.Chat.ProviderTimeout = getEnvDuration("PROVIDER_TIMEOUT", c.Chat.ProviderTimeout)
	c.Chat.FallbackMode = strings.ToLower(getEnv("FALLBACK_MODE", c.Chat.FallbackMode))

	c.Session.Store = strings.ToLower(getEnv("SESSION_STORE", c.Session.Store))
	c.Session.SQLitePath = getEnv("SQLITE_PATH", c.Session.SQLitePath)
	c.Session.RedisAddr = getEnv("REDIS_ADDR", c.Session.RedisAddr)
	c.Session.RedisPassword = getEnv("REDIS_PASSWORD", c.Session.RedisPassword)
	c.Session.RedisDB = getEnvInt("REDIS_DB", c.Session.RedisDB)
	c.Session.DynamoDBTable = getEnv("DYNAMODB_TABLE", c.Session.DynamoDBTable)
	c.Session.TTL = getEnvDuration("SESSION_TTL", c.Session.TTL)
	c.Session.PruneInterval = getEnvDuration("PRUNE_INTERVAL", c.Session.PruneInterval)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.Anthropic.APIKey == "" && c.Anthropic.APIKeyParam == "" {
		return errors.New("ANTHROPIC_API_KEY or ANTHROPIC_API_KEY_PARAM is required")
	}
	if c.Anthropic.Model == "" {
		return errors.New("ANTHROPIC_MODEL cannot be empty")
	}
	if c.Chat.MaxOutputTokens <= 0 {
		return errors.New("MAX_OUTPUT_TOKENS must be > 0")
	}
	if c.Chat.HistoryWindow <= 0 {
		return errors.New("HISTORY_WINDOW must be > 0")
	}
	if c.Chat.MaxMessageLength <= 0 {
		return errors.New("MAX_MESSAGE_LENGTH must be > 0")
	}
	if c.Chat.ProviderTimeout <= 0 {
		return errors.New("PROVIDER_TIMEOUT must be > 0")
	}
	switch c.Chat.FallbackMode {
	case FallbackMessage, FallbackError:
	default:
		return fmt.Errorf("FALLBACK_MODE must be %q or %q", FallbackMessage, FallbackError)
	}

	switch c.Session.Store {
	case "memory":
	case "sqlite":
		if c.Session.SQLitePath == "" {
			return errors.New("SQLITE_PATH cannot be empty")
		}
	case "redis":
		if c.Session.RedisAddr == "" {
			return errors.New("REDIS_ADDR cannot be empty")
		}
	case "dynamodb":
		if c.Session.DynamoDBTable == "" {
			return errors.New("DYNAMODB_TABLE is required for the dynamodb session store")
		}
	default:
		return fmt.Errorf("SESSION_STORE %q is not supported", c.Session.Store)
	}
	if c.Session.TTL < 0 {
		return errors.New("SESSION_TTL must be >= 0")
	}
	if c.Session.PruneInterval <= 0 {
		return errors.New("PRUNE_INTERVAL must be > 0")
	}
	return nil
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.Session.Store == "dynamodb" || (c.Anthropic.APIKey == "" && c.Anthropic.APIKeyParam != "")
}

// ErrorFallback reports whether provider failures surface as HTTP errors
// instead of a fallback reply.
func (c *Config) ErrorFallback() bool {
	return c.Chat.FallbackMode == FallbackError
}

// LogLevel is debug when DEBUG is set, info otherwise.
func (c *Config) LogLevel() slog.Level {
	if c.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("30s") or plain seconds ("30").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
