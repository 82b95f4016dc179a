package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration. Every key is optional; defaults
// enable the fully in-memory (mock) deployment.
type Config struct {
	LLMProvider         string        `mapstructure:"llm_provider"`
	LLMModel            string        `mapstructure:"llm_model"`
	LLMAPIKey           string        `mapstructure:"llm_api_key"`
	LLMBaseURL          string        `mapstructure:"llm_base_url"`
	LLMTimeout          time.Duration `mapstructure:"-"`
	LLMMaxRetries       int           `mapstructure:"llm_max_retries"`
	LLMFallbackProvider string        `mapstructure:"llm_fallback_provider"`
	LLMFallbackModel    string        `mapstructure:"llm_fallback_model"`

	RedisURL    string `mapstructure:"redis_url"`
	DatabaseURL string `mapstructure:"database_url"`

	RateLimitPerMinute int           `mapstructure:"rate_limit_per_minute"`
	SessionTTL         time.Duration `mapstructure:"-"`
	IntentCacheTTL     time.Duration `mapstructure:"-"`
	HistoryLimit       int           `mapstructure:"history_limit"`

	HomeBankName string `mapstructure:"home_bank_name"`
	HomeCountry  string `mapstructure:"home_country"`

	HTTPAddr string `mapstructure:"http_addr"`
	LogLevel string `mapstructure:"log_level"`
}

// Load reads configuration from the environment with defaults applied.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("llm_provider", "mock")
	v.SetDefault("llm_model", "")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("llm_base_url", "")
	v.SetDefault("llm_timeout", 15)
	v.SetDefault("llm_max_retries", 3)
	v.SetDefault("llm_fallback_provider", "")
	v.SetDefault("llm_fallback_model", "")
	v.SetDefault("redis_url", "mock")
	v.SetDefault("database_url", "mock")
	v.SetDefault("rate_limit_per_minute", 30)
	v.SetDefault("session_ttl_seconds", 3600)
	v.SetDefault("intent_cache_ttl_seconds", 300)
	v.SetDefault("history_limit", 10)
	v.SetDefault("home_bank_name", "EBP Bank")
	v.SetDefault("home_country", "US")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.LLMTimeout = time.Duration(v.GetInt("llm_timeout")) * time.Second
	cfg.SessionTTL = time.Duration(v.GetInt("session_ttl_seconds")) * time.Second
	cfg.IntentCacheTTL = time.Duration(v.GetInt("intent_cache_ttl_seconds")) * time.Second
	return &cfg, nil
}
