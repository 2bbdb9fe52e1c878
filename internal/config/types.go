// Package config provides configuration loading, defaults, and validation
// for the LeoBot gateway. Configuration is read from config.yaml with
// LEOBOT_* environment variable overrides.
package config

import "time"

// Config holds all configuration for the gateway components.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Evolution EvolutionConfig `mapstructure:"evolution"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Rate      RateConfig      `mapstructure:"rate"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Author    AuthorConfig    `mapstructure:"author"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LogConfig controls log level and output format.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// ServerConfig controls the webhook HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"min=1,max=65535"`
}

// DatabaseConfig controls the SQLite database location.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// EvolutionConfig holds credentials for the Evolution API messaging gateway.
type EvolutionConfig struct {
	APIURL      string        `mapstructure:"api_url"      validate:"required,url"`
	APIKey      string        `mapstructure:"api_key"      validate:"required"`
	Instance    string        `mapstructure:"instance"     validate:"required"`
	SendTimeout time.Duration `mapstructure:"send_timeout" validate:"min=1s,max=5m"`
}

// LLMConfig holds settings for the Gemini client.
type LLMConfig struct {
	APIKey            string        `mapstructure:"api_key"             validate:"required"`
	Model             string        `mapstructure:"model"`
	Temperature       float32       `mapstructure:"temperature"         validate:"min=0,max=2"`
	MaxRetries        int           `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int           `mapstructure:"retry_delay_seconds" validate:"min=1,max=60"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"     validate:"min=1s,max=10m"`
}

// RateConfig controls per-sender throttling. HourlyCap is a process-lifetime
// counter, not a sliding window.
type RateConfig struct {
	MinInterval time.Duration `mapstructure:"min_interval" validate:"min=0"`
	HourlyCap   int           `mapstructure:"hourly_cap"   validate:"min=1"`
	UsageCap    int           `mapstructure:"usage_cap"    validate:"min=1"`
}

// MemoryConfig controls conversation memory limits.
type MemoryConfig struct {
	Window        int `mapstructure:"window"          validate:"min=1,max=100"`
	MaxMessageLen int `mapstructure:"max_message_len" validate:"min=1"`
}

// AuthorConfig controls authoring-session detection for privileged senders.
type AuthorConfig struct {
	PrivilegedSenders   []string `mapstructure:"privileged_senders"`
	ConfidenceThreshold float64  `mapstructure:"confidence_threshold" validate:"min=0,max=1"`
}

// RAGConfig controls document retrieval and the external reindexer.
type RAGConfig struct {
	IndexerURL     string        `mapstructure:"indexer_url"     validate:"omitempty,url"`
	ReindexTimeout time.Duration `mapstructure:"reindex_timeout" validate:"min=1s,max=10m"`
}

// TaskConfig defines a single scheduled task.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// MessagesConfig holds the canned user-facing replies. All defaults are in
// Brazilian Portuguese, matching the audience of the bot.
type MessagesConfig struct {
	RateWait          string `mapstructure:"rate_wait"`
	RateLimit         string `mapstructure:"rate_limit"`
	UsageCap          string `mapstructure:"usage_cap"`
	SecurityInjection string `mapstructure:"security_injection"`
	SecurityRepeat    string `mapstructure:"security_repeat"`
	SecurityChars     string `mapstructure:"security_chars"`
	TooLong           string `mapstructure:"too_long"`
	EmptyMessage      string `mapstructure:"empty_message"`
	GeneralError      string `mapstructure:"general_error"`
	ReindexOK         string `mapstructure:"reindex_ok"`
	ReindexFail       string `mapstructure:"reindex_fail"`
}
