package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM provider identifiers. "kimi" speaks the OpenAI-compatible wire
// protocol against the Moonshot endpoint.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderKimi   = "kimi"
)

// Config holds application configuration. It is constructed once at startup
// and passed by value to the components that need it.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	LLMProvider   string
	LLMTimeout    time.Duration
	LLMMaxRetries int

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey string
	OpenAIModel  string

	KimiAPIKey  string
	KimiModel   string
	KimiBaseURL string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() Config {
	cfg := Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		LLMProvider:   normalizeProvider(getEnv("LLM_PROVIDER", ProviderGemini)),
		LLMTimeout:    getEnvAsDuration("LLM_TIMEOUT", 8*time.Second),
		LLMMaxRetries: getEnvAsInt("LLM_MAX_RETRIES", 1),

		GeminiAPIKey: strings.TrimSpace(firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY")),
		GeminiModel:  strings.TrimSpace(getEnv("GEMINI_MODEL", "gemini-2.0-flash")),

		OpenAIAPIKey: strings.TrimSpace(getEnv("OPENAI_API_KEY", "")),
		OpenAIModel:  strings.TrimSpace(getEnv("OPENAI_MODEL", "gpt-4o-mini")),

		KimiAPIKey:  strings.TrimSpace(firstEnv("MOONSHOT_API_KEY", "KIMI_API_KEY")),
		KimiModel:   strings.TrimSpace(getEnv("KIMI_MODEL", "kimi-k2-turbo-preview")),
		KimiBaseURL: strings.TrimSpace(getEnv("KIMI_BASE_URL", "https://api.moonshot.ai/v1")),

		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "")),
	}
	cfg.LLMProvider = resolveProvider(cfg)
	return cfg
}

// ProviderKey returns the API key configured for the resolved provider.
func (c Config) ProviderKey() string {
	switch c.LLMProvider {
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderKimi:
		return c.KimiAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// LLMEnabled reports whether the resolved provider has a usable key.
func (c Config) LLMEnabled() bool {
	return c.ProviderKey() != ""
}

func normalizeProvider(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "moonshot", ProviderKimi:
		return ProviderKimi
	case ProviderGemini:
		return ProviderGemini
	default:
		return ProviderOpenAI
	}
}

// resolveProvider keeps the preferred provider when its key is present, and
// otherwise falls back to the first provider that has one configured.
func resolveProvider(cfg Config) string {
	keys := map[string]string{
		ProviderGemini: cfg.GeminiAPIKey,
		ProviderKimi:   cfg.KimiAPIKey,
		ProviderOpenAI: cfg.OpenAIAPIKey,
	}
	if keys[cfg.LLMProvider] != "" {
		return cfg.LLMProvider
	}
	for _, provider := range []string{ProviderGemini, ProviderKimi, ProviderOpenAI} {
		if keys[provider] != "" {
			return provider
		}
	}
	return cfg.LLMProvider
}

func splitAndTrim(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
