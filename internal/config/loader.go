package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tradeassist.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// The YAML file is optional; a missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TRADEASSIST_PORT")
	setString(&cfg.Server.CORSOrigin, "TRADEASSIST_CORS_ORIGIN")

	setString(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	setString(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.OpenAI.Model, "TRADEASSIST_MODEL")
	setFloat64(&cfg.OpenAI.Temperature, "TRADEASSIST_TEMPERATURE")
	setInt(&cfg.OpenAI.MaxTokens, "TRADEASSIST_MAX_TOKENS")
	setDuration(&cfg.OpenAI.Timeout, "TRADEASSIST_LLM_TIMEOUT")
	setInt(&cfg.OpenAI.MaxRetries, "TRADEASSIST_LLM_MAX_RETRIES")

	setString(&cfg.Logging.Level, "TRADEASSIST_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TRADEASSIST_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TRADEASSIST_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "TRADEASSIST_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TRADEASSIST_BREAKER_TIMEOUT")

	setInt(&cfg.Rate.PerMinute, "TRADEASSIST_RATE_PER_MINUTE")
	setInt(&cfg.Rate.PerHour, "TRADEASSIST_RATE_PER_HOUR")
	setDuration(&cfg.Rate.CleanupInterval, "TRADEASSIST_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "TRADEASSIST_RATE_MAX_IDLE_TIME")

	setInt64(&cfg.Cache.MaxSizeMB, "TRADEASSIST_CACHE_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "TRADEASSIST_CACHE_TTL")

	setInt(&cfg.Conversation.MaxMessages, "TRADEASSIST_CONV_MAX_MESSAGES")
	setInt(&cfg.Conversation.MaxPerUser, "TRADEASSIST_CONV_MAX_PER_USER")
	setInt(&cfg.Conversation.HistoryForPrompt, "TRADEASSIST_CONV_HISTORY")

	setDuration(&cfg.Orchestrator.Deadline, "TRADEASSIST_DEADLINE")
	setInt64(&cfg.Orchestrator.MaxConcurrentCalls, "TRADEASSIST_MAX_CONCURRENT_CALLS")
	setInt(&cfg.Orchestrator.ToolMaxFailures, "TRADEASSIST_TOOL_MAX_FAILURES")
	setDuration(&cfg.Orchestrator.ToolCooldown, "TRADEASSIST_TOOL_COOLDOWN")

	setBool(&cfg.MCP.Enabled, "TRADEASSIST_MCP_ENABLED")
	setString(&cfg.MCP.Addr, "TRADEASSIST_MCP_ADDR")
	setString(&cfg.MCP.APIKey, "TRADEASSIST_MCP_API_KEY")
}

// validate checks configuration invariants that would otherwise surface as
// confusing runtime behavior.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port must not be empty")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return fmt.Errorf("breaker.max_failures must be >= 1, got %d", cfg.Breaker.MaxFailures)
	}
	if cfg.Rate.PerMinute < 1 || cfg.Rate.PerHour < cfg.Rate.PerMinute {
		return fmt.Errorf("rate limits invalid: per_minute=%d per_hour=%d", cfg.Rate.PerMinute, cfg.Rate.PerHour)
	}
	if cfg.Conversation.MaxMessages < 2 {
		return fmt.Errorf("conversation.max_messages must hold at least one exchange, got %d", cfg.Conversation.MaxMessages)
	}
	if cfg.Conversation.MaxPerUser < 1 {
		return fmt.Errorf("conversation.max_per_user must be >= 1, got %d", cfg.Conversation.MaxPerUser)
	}
	if cfg.Conversation.TitleDisplayWidth < 1 {
		return fmt.Errorf("conversation.title_display_width must be >= 1, got %d", cfg.Conversation.TitleDisplayWidth)
	}
	if cfg.Conversation.MinQueryLength < 1 || cfg.Conversation.MaxQueryLength <= cfg.Conversation.MinQueryLength {
		return fmt.Errorf("query length bounds invalid: min=%d max=%d",
			cfg.Conversation.MinQueryLength, cfg.Conversation.MaxQueryLength)
	}
	if cfg.Orchestrator.MaxConcurrentCalls < 1 {
		return fmt.Errorf("orchestrator.max_concurrent_calls must be >= 1, got %d", cfg.Orchestrator.MaxConcurrentCalls)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
