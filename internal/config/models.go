package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// LLMConfig represents the provider-independent completion settings
type LLMConfig struct {
	Provider            string
	ClassifyTemperature float32
	RespondTemperature  float32
	MaxAttempts         int
	RetryDelay          time.Duration
	CostPer1KTokens     float64
	MaxTokens           int
	MaxBodySize         int
	BreakerEnabled      bool
	BreakerFailures     int
	BreakerTimeout      time.Duration
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey         string
	ModelName      string
	BaseURL        string
	TopP           float32
	EmbeddingModel string
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey         string
	ModelName      string
	TopP           float32
	EmbeddingModel string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region  string
	ModelID string
	TopP    float32
}

// PipelineConfig represents the triage pipeline settings
type PipelineConfig struct {
	ConfidenceThreshold int
	Workers             int
	EmailTimeout        time.Duration
}

// RedisConfig represents a Redis connection
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

// HistoryConfig represents the sender history store settings
type HistoryConfig struct {
	Type       string
	Limit      int
	Dir        string
	SQLitePath string
	MySQLDSN   string
	Redis      RedisConfig
}

// KnowledgeConfig represents the knowledge base settings
type KnowledgeConfig struct {
	Enabled      bool
	DBPath       string
	Embedder     string
	TopK         int
	ChunkSize    int
	ChunkOverlap int
}

// SMTPRelayConfig represents the outbound SMTP relay for auto-replies
type SMTPRelayConfig struct {
	Address  string
	Helo     string
	From     string
	Username string
	Password string
	Timeout  time.Duration
}

// DispatchConfig represents the downstream handler settings
type DispatchConfig struct {
	Sender string
	SMTP   SMTPRelayConfig
}

// SMTPIntakeConfig represents the inbound SMTP server
type SMTPIntakeConfig struct {
	ListenAddress   string
	Domain          string
	AcceptedDomains []string
	MaxMessageBytes int64
	ShutdownTimeout time.Duration
}

// IMAPIntakeConfig represents the IMAP mailbox poller
type IMAPIntakeConfig struct {
	Address      string
	TLS          bool
	Username     string
	Password     string
	Mailbox      string
	PollInterval time.Duration
}

// IntakeConfig represents where the daemon receives email from
type IntakeConfig struct {
	Type     string
	SMTP     SMTPIntakeConfig
	IMAP     IMAPIntakeConfig
	JSONPath string
}

// MetricsConfig represents the Prometheus endpoint
type MetricsConfig struct {
	Enabled       bool
	ListenAddress string
}

// CategoryConfig overrides the built-in text for one category
type CategoryConfig struct {
	Definition string
	Guidance   string
}

// ProfileConfig is a configured sender tone profile
type ProfileConfig struct {
	Address     string `mapstructure:"address"`
	Tone        string `mapstructure:"tone"`
	UrgencyBias string `mapstructure:"urgency_bias"`
}

// categoryNames mirrors the category enumeration for config lookups
var categoryNames = []string{"complaint", "inquiry", "feedback", "support_request", "other"}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:            strings.ToLower(c.GetString("llm.provider")),
		ClassifyTemperature: float32(c.GetFloat64("llm.classify_temperature")),
		RespondTemperature:  float32(c.GetFloat64("llm.respond_temperature")),
		MaxAttempts:         c.GetInt("llm.max_attempts"),
		RetryDelay:          c.duration("llm.retry_delay"),
		CostPer1KTokens:     c.GetFloat64("llm.cost_per_1k_tokens"),
		MaxTokens:           c.GetInt("llm.max_tokens"),
		MaxBodySize:         c.GetInt("llm.max_body_size"),
		BreakerEnabled:      c.GetBool("llm.breaker.enabled"),
		BreakerFailures:     c.GetInt("llm.breaker.failures"),
		BreakerTimeout:      c.duration("llm.breaker.timeout"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:         c.withEnvFallback("openai.api_key", "OPENAI_API_KEY"),
		ModelName:      c.GetString("openai.model_name"),
		BaseURL:        c.GetString("openai.base_url"),
		TopP:           float32(c.GetFloat64("openai.top_p")),
		EmbeddingModel: c.GetString("openai.embedding_model"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:         c.withEnvFallback("gemini.api_key", "GEMINI_API_KEY"),
		ModelName:      c.GetString("gemini.model_name"),
		TopP:           float32(c.GetFloat64("gemini.top_p")),
		EmbeddingModel: c.GetString("gemini.embedding_model"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:  c.GetString("bedrock.region"),
		ModelID: c.GetString("bedrock.model_id"),
		TopP:    float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetPipeline returns the pipeline configuration
func (c *Config) GetPipeline() PipelineConfig {
	return PipelineConfig{
		ConfidenceThreshold: c.GetInt("pipeline.confidence_threshold"),
		Workers:             c.GetInt("pipeline.workers"),
		EmailTimeout:        c.duration("pipeline.email_timeout"),
	}
}

// GetHistory returns the history store configuration
func (c *Config) GetHistory() HistoryConfig {
	return HistoryConfig{
		Type:       strings.ToLower(c.GetString("history.type")),
		Limit:      c.GetInt("history.limit"),
		Dir:        c.GetString("history.dir"),
		SQLitePath: c.GetString("history.sqlite_path"),
		MySQLDSN:   c.GetString("history.mysql_dsn"),
		Redis: RedisConfig{
			Address:  c.GetString("history.redis.address"),
			Password: c.GetString("history.redis.password"),
			DB:       c.GetInt("history.redis.db"),
			Prefix:   c.GetString("history.redis.prefix"),
		},
	}
}

// GetKnowledge returns the knowledge base configuration
func (c *Config) GetKnowledge() KnowledgeConfig {
	return KnowledgeConfig{
		Enabled:      c.GetBool("knowledge.enabled"),
		DBPath:       c.GetString("knowledge.db_path"),
		Embedder:     strings.ToLower(c.GetString("knowledge.embedder")),
		TopK:         c.GetInt("knowledge.top_k"),
		ChunkSize:    c.GetInt("knowledge.chunk_size"),
		ChunkOverlap: c.GetInt("knowledge.chunk_overlap"),
	}
}

// GetDispatch returns the downstream handler configuration
func (c *Config) GetDispatch() DispatchConfig {
	return DispatchConfig{
		Sender: strings.ToLower(c.GetString("dispatch.sender")),
		SMTP: SMTPRelayConfig{
			Address:  c.GetString("dispatch.smtp.address"),
			Helo:     c.GetString("dispatch.smtp.helo"),
			From:     c.GetString("dispatch.smtp.from"),
			Username: c.GetString("dispatch.smtp.username"),
			Password: c.GetString("dispatch.smtp.password"),
			Timeout:  c.duration("dispatch.smtp.timeout"),
		},
	}
}

// GetIntake returns the intake configuration
func (c *Config) GetIntake() IntakeConfig {
	return IntakeConfig{
		Type: strings.ToLower(c.GetString("intake.type")),
		SMTP: SMTPIntakeConfig{
			ListenAddress:   c.GetString("intake.smtp.listen_address"),
			Domain:          c.GetString("intake.smtp.domain"),
			AcceptedDomains: c.GetStringSlice("intake.smtp.accepted_domains"),
			MaxMessageBytes: int64(c.GetInt("intake.smtp.max_message_bytes")),
			ShutdownTimeout: c.duration("intake.smtp.shutdown_timeout"),
		},
		IMAP: IMAPIntakeConfig{
			Address:      c.GetString("intake.imap.address"),
			TLS:          c.GetBool("intake.imap.tls"),
			Username:     c.GetString("intake.imap.username"),
			Password:     c.GetString("intake.imap.password"),
			Mailbox:      c.GetString("intake.imap.mailbox"),
			PollInterval: c.duration("intake.imap.poll_interval"),
		},
		JSONPath: c.GetString("intake.json.path"),
	}
}

// GetMetrics returns the metrics configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled:       c.GetBool("metrics.enabled"),
		ListenAddress: c.GetString("metrics.listen_address"),
	}
}

// GetFallbackDir returns the directory holding canned replies, or "" for the built-in pool
func (c *Config) GetFallbackDir() string {
	return c.GetString("responses.fallback_dir")
}

// GetCategories returns the configured category text overrides, keyed by category name
func (c *Config) GetCategories() map[string]CategoryConfig {
	out := make(map[string]CategoryConfig)
	for _, name := range categoryNames {
		cc := CategoryConfig{
			Definition: c.GetString("categories." + name + ".definition"),
			Guidance:   c.GetString("categories." + name + ".guidance"),
		}
		if cc.Definition != "" || cc.Guidance != "" {
			out[name] = cc
		}
	}
	return out
}

// GetProfiles returns the configured sender tone profiles
func (c *Config) GetProfiles() ([]ProfileConfig, error) {
	var profiles []ProfileConfig
	if err := c.v.UnmarshalKey("profiles", &profiles); err != nil {
		return nil, fmt.Errorf("failed to decode profiles: %w", err)
	}
	return profiles, nil
}

// Validate checks values that cannot be validated lazily
func (c *Config) Validate() error {
	for _, key := range []string{
		"llm.retry_delay",
		"llm.breaker.timeout",
		"pipeline.email_timeout",
		"dispatch.smtp.timeout",
		"intake.imap.poll_interval",
		"intake.smtp.shutdown_timeout",
	} {
		if _, err := c.GetDuration(key); err != nil {
			return err
		}
	}

	switch p := c.GetLLM().Provider; p {
	case "openai", "gemini", "bedrock":
	default:
		return fmt.Errorf("unsupported LLM provider: %s", p)
	}

	if c.GetLLM().MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1")
	}
	return nil
}

// duration returns a parsed duration, or zero when the value is invalid.
// Validate reports invalid values up front.
func (c *Config) duration(key string) time.Duration {
	d, err := c.GetDuration(key)
	if err != nil {
		return 0
	}
	return d
}

// withEnvFallback returns the key's value, or the plain environment variable when unset
func (c *Config) withEnvFallback(key, env string) string {
	if v := c.GetString(key); v != "" {
		return v
	}
	return os.Getenv(env)
}
