// Package config provides environment configuration for the bot server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// Telegram settings
	TelegramBotToken      string
	TelegramAPIBaseURL    string
	TelegramWebhookSecret string

	// Weather provider
	WeatherAPIKey  string
	WeatherBaseURL string

	// Finance provider
	AlphaVantageAPIKey  string
	AlphaVantageBaseURL string

	// LLM settings
	OpenAIAPIKey    string
	AnthropicAPIKey string
	GeminiAPIKey    string
	DefaultLLM      string
	Model           string

	// Summarization provider
	HuggingFaceToken   string
	HuggingFaceModel   string
	HuggingFaceBaseURL string

	// Per-user walk quota
	WalkQuotaLimit  int
	WalkQuotaWindow time.Duration

	// Provider retry policy (1 attempt preserves single-shot behaviour)
	ProviderMaxAttempts int
	ProviderBackoff     time.Duration

	// Webhook flood limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// State store
	StateBackend string
	RedisURL     string

	// NATS settings (empty URL disables the audit stream)
	NATSURL   string
	NATSToken string

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8443"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// Telegram
		TelegramBotToken:      getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIBaseURL:    getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
		TelegramWebhookSecret: getEnv("TELEGRAM_WEBHOOK_SECRET", ""),

		// Weather
		WeatherAPIKey:  getEnv("WEATHER_API_KEY", ""),
		WeatherBaseURL: getEnv("WEATHER_BASE_URL", "http://dataservice.accuweather.com"),

		// Finance
		AlphaVantageAPIKey:  getEnv("ALPHA_VANTAGE_API_KEY", ""),
		AlphaVantageBaseURL: getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co"),

		// LLM
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "gemini"),
		Model:           getEnv("MODEL", ""),

		// Summarization
		HuggingFaceToken:   getEnv("HUGGINGFACE_TOKEN", ""),
		HuggingFaceModel:   getEnv("HUGGINGFACE_MODEL", "facebook/bart-large-cnn"),
		HuggingFaceBaseURL: getEnv("HUGGINGFACE_BASE_URL", "https://api-inference.huggingface.co"),

		// Quota
		WalkQuotaLimit:  getIntEnv("WALK_QUOTA_LIMIT", 3),
		WalkQuotaWindow: getDurationEnv("WALK_QUOTA_WINDOW", 24*time.Hour),

		// Retry
		ProviderMaxAttempts: getIntEnv("PROVIDER_MAX_ATTEMPTS", 1),
		ProviderBackoff:     getDurationEnv("PROVIDER_BACKOFF", 500*time.Millisecond),

		// Rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// State store
		StateBackend: getEnv("STATE_BACKEND", "memory"),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// NATS
		NATSURL:   getEnv("NATS_URL", ""),
		NATSToken: getEnv("NATS_TOKEN", ""),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
