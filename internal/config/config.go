package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. TRIAGE_LLM_PROVIDER
const EnvPrefix = "TRIAGE"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	return NewFromFile("")
}

// NewFromFile creates a configuration instance reading the given file.
// An empty path searches the default locations.
func NewFromFile(path string) (*Config, error) {
	// Variables from .env never override the real environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/llm-support-triage/")
		v.AddConfigPath("$HOME/.llm-support-triage")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.classify_temperature", 0.0)
	v.SetDefault("llm.respond_temperature", 0.5)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.retry_delay", "2s")
	v.SetDefault("llm.cost_per_1k_tokens", 0.0015)
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.max_body_size", 8192)
	v.SetDefault("llm.breaker.enabled", false)
	v.SetDefault("llm.breaker.failures", 5)
	v.SetDefault("llm.breaker.timeout", "30s")

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-3.5-turbo-0125")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.top_p", 1.0)
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-1.5-flash")
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.embedding_model", "text-embedding-004")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-3-haiku-20240307-v1:0")
	v.SetDefault("bedrock.top_p", 0.9)

	// Pipeline defaults
	v.SetDefault("pipeline.confidence_threshold", 3)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.email_timeout", "0s")

	// History defaults
	v.SetDefault("history.type", "file")
	v.SetDefault("history.limit", 3)
	v.SetDefault("history.dir", "./data/email_logs")
	v.SetDefault("history.sqlite_path", "./data/history.db")
	v.SetDefault("history.mysql_dsn", "user:password@tcp(localhost:3306)/support_triage?parseTime=true")
	v.SetDefault("history.redis.address", "localhost:6379")
	v.SetDefault("history.redis.password", "")
	v.SetDefault("history.redis.db", 0)
	v.SetDefault("history.redis.prefix", "triage:history:")

	// Knowledge base defaults
	v.SetDefault("knowledge.enabled", false)
	v.SetDefault("knowledge.db_path", "./data/knowledge.db")
	v.SetDefault("knowledge.embedder", "openai")
	v.SetDefault("knowledge.top_k", 3)
	v.SetDefault("knowledge.chunk_size", 500)
	v.SetDefault("knowledge.chunk_overlap", 50)

	// Response defaults
	v.SetDefault("responses.fallback_dir", "")

	// Dispatch defaults
	v.SetDefault("dispatch.sender", "log")
	v.SetDefault("dispatch.smtp.address", "localhost:25")
	v.SetDefault("dispatch.smtp.helo", "localhost")
	v.SetDefault("dispatch.smtp.from", "support@example.com")
	v.SetDefault("dispatch.smtp.username", "")
	v.SetDefault("dispatch.smtp.password", "")
	v.SetDefault("dispatch.smtp.timeout", "30s")

	// Intake defaults
	v.SetDefault("intake.type", "smtp")
	v.SetDefault("intake.smtp.listen_address", "0.0.0.0:2525")
	v.SetDefault("intake.smtp.domain", "localhost")
	v.SetDefault("intake.smtp.accepted_domains", []string{})
	v.SetDefault("intake.smtp.max_message_bytes", 10*1024*1024)
	v.SetDefault("intake.smtp.shutdown_timeout", "30s")
	v.SetDefault("intake.imap.address", "localhost:993")
	v.SetDefault("intake.imap.tls", true)
	v.SetDefault("intake.imap.username", "")
	v.SetDefault("intake.imap.password", "")
	v.SetDefault("intake.imap.mailbox", "INBOX")
	v.SetDefault("intake.imap.poll_interval", "1m")
	v.SetDefault("intake.json.path", "./data/emails")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_address", "127.0.0.1:9090")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// Set overrides a value, taking precedence over files and environment
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
