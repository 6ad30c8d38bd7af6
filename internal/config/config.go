// Package config provides hierarchical configuration loading for TradeAssist.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the assistant core service.
type Config struct {
	Server       Server       `yaml:"server"`
	OpenAI       OpenAI       `yaml:"openai"`
	Logging      Logging      `yaml:"logging"`
	Breaker      Breaker      `yaml:"breaker"`
	Rate         Rate         `yaml:"rate"`
	Cache        Cache        `yaml:"cache"`
	Conversation Conversation `yaml:"conversation"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
	MCP          MCP          `yaml:"mcp"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// OpenAI holds configuration for the OpenAI-compatible chat completions API.
type OpenAI struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"` // retries for transient (5xx/transport) failures
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration, shared by every protected
// resource (the LLM provider and each tool get an independent breaker).
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds per-user rate limiter configuration.
type Rate struct {
	PerMinute       int           `yaml:"per_minute"`
	PerHour         int           `yaml:"per_hour"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime     time.Duration `yaml:"max_idle_time"`
}

// Cache holds response cache configuration.
type Cache struct {
	MaxSizeMB int64         `yaml:"max_size_mb"`
	TTL       time.Duration `yaml:"ttl"`
}

// Conversation holds in-memory conversation store bounds.
type Conversation struct {
	MaxMessages       int `yaml:"max_messages"`        // per conversation, oldest truncated
	MaxPerUser        int `yaml:"max_per_user"`        // least-recently-active evicted
	HistoryForPrompt  int `yaml:"history_for_prompt"`  // messages passed to the LLM
	TitleDisplayWidth int `yaml:"title_display_width"` // summary title truncation
	MinQueryLength    int `yaml:"min_query_length"`    // validation bound
	MaxQueryLength    int `yaml:"max_query_length"`    // validation bound
}

// Orchestrator holds pipeline configuration.
type Orchestrator struct {
	Deadline           time.Duration `yaml:"deadline"`             // overall per-query budget
	MaxConcurrentCalls int64         `yaml:"max_concurrent_calls"` // bound on in-flight LLM/tool calls
	ToolMaxFailures    int           `yaml:"tool_max_failures"`    // consecutive failures before a tool is marked unhealthy
	ToolCooldown       time.Duration `yaml:"tool_cooldown"`        // unhealthy tool recovery window
}

// MCP holds the Model Context Protocol server configuration.
type MCP struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	APIKey  string `yaml:"api_key"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		OpenAI: OpenAI{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   1024,
			Timeout:     30 * time.Second,
			MaxRetries:  1,
		},
		Logging: Logging{
			Level:   "info",
			Service: "tradeassist-core",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			PerMinute:       20,
			PerHour:         100,
			CleanupInterval: 5 * time.Minute,
			MaxIdleTime:     time.Hour,
		},
		Cache: Cache{
			MaxSizeMB: 64,
			TTL:       30 * time.Minute,
		},
		Conversation: Conversation{
			MaxMessages:       100,
			MaxPerUser:        50,
			HistoryForPrompt:  6,
			TitleDisplayWidth: 50,
			MinQueryLength:    3,
			MaxQueryLength:    2000,
		},
		Orchestrator: Orchestrator{
			Deadline:           15 * time.Second,
			MaxConcurrentCalls: 8,
			ToolMaxFailures:    3,
			ToolCooldown:       time.Minute,
		},
		MCP: MCP{
			Enabled: false,
			Addr:    ":3001",
		},
	}
}
