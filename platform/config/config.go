// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// SchedulerConfig provides settings for the asynq scheduler/worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// MapsConfig provides settings for the Google Maps places/geocoding clients.
type MapsConfig interface {
	GetGoogleMapsAPIKey() string
}

// AIConfig provides settings for the model collaborators.
type AIConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetMaxAlternatives() int
}

// VoiceConfig provides settings for the outbound voice-call provider.
type VoiceConfig interface {
	GetVoiceAPIKey() string
	GetVoiceBaseURL() string
	GetVoicePhoneNumberID() string
	GetVoiceWebhookSecret() string
	GetPublicBaseURL() string
}

// LogisticsConfig provides settings for the delivery quote/order provider.
type LogisticsConfig interface {
	GetLogisticsAPIKey() string
	GetLogisticsBaseURL() string
	GetLogisticsWebhookSecret() string
	GetPublicBaseURL() string
}

// PipelineConfig provides tunables for the ticket fulfillment pipeline.
type PipelineConfig interface {
	GetMaxVendors() int
	GetMaxAlternatives() int
	GetCallMaxRetries() int
	GetCallRetryDelay() time.Duration
	GetMaxDeliveryRetries() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	CORSAllowAll bool
	CORSOrigins  []string

	// PublicBaseURL is the externally reachable base URL used to build
	// webhook/callback URLs handed to the voice and logistics providers.
	PublicBaseURL string

	GoogleMapsAPIKey string

	GeminiAPIKey string
	GeminiModel  string

	VoiceAPIKey        string
	VoiceBaseURL       string
	VoicePhoneNumberID string
	VoiceWebhookSecret string

	LogisticsAPIKey        string
	LogisticsBaseURL       string
	LogisticsWebhookSecret string

	MaxVendors         int
	MaxAlternatives    int
	CallMaxRetries     int
	CallRetryDelay     time.Duration
	MaxDeliveryRetries int
}

// Load reads configuration from the environment (and .env if present).
// Missing credentials for a required feature fail here, at startup,
// rather than surfacing per-request.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getIntEnv("ASYNQ_CONCURRENCY", 10),

		CORSAllowAll: corsAllowAll,
		CORSOrigins:  corsOrigins,

		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),

		GoogleMapsAPIKey: getEnv("GOOGLE_MAPS_API_KEY", ""),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		VoiceAPIKey:        getEnv("VOICE_API_KEY", ""),
		VoiceBaseURL:       strings.TrimRight(getEnv("VOICE_BASE_URL", "https://api.vapi.ai"), "/"),
		VoicePhoneNumberID: getEnv("VOICE_PHONE_NUMBER_ID", ""),
		VoiceWebhookSecret: getEnv("VOICE_WEBHOOK_SECRET", ""),

		LogisticsAPIKey:        getEnv("LOGISTICS_API_KEY", ""),
		LogisticsBaseURL:       strings.TrimRight(getEnv("LOGISTICS_BASE_URL", ""), "/"),
		LogisticsWebhookSecret: getEnv("LOGISTICS_WEBHOOK_SECRET", ""),

		MaxVendors:         clampInt(getIntEnv("MAX_VENDORS_TO_CALL", 5), 1, 10),
		MaxAlternatives:    getIntEnv("MAX_ALTERNATIVES", 3),
		CallMaxRetries:     getIntEnv("STORE_CALL_MAX_RETRIES", 2),
		CallRetryDelay:     mustDuration(getEnv("STORE_CALL_RETRY_DELAY", "2m")),
		MaxDeliveryRetries: getIntEnv("MAX_DELIVERY_RETRIES", 3),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required (call retries and wake-up calls are scheduled through it)")
	}
	if cfg.GoogleMapsAPIKey == "" {
		return nil, fmt.Errorf("GOOGLE_MAPS_API_KEY is required")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if cfg.VoiceAPIKey == "" || cfg.VoicePhoneNumberID == "" {
		return nil, fmt.Errorf("VOICE_API_KEY and VOICE_PHONE_NUMBER_ID are required")
	}
	if cfg.LogisticsBaseURL == "" || cfg.LogisticsAPIKey == "" {
		return nil, fmt.Errorf("LOGISTICS_BASE_URL and LOGISTICS_API_KEY are required")
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("PUBLIC_BASE_URL is required (providers deliver call and delivery callbacks to it)")
	}

	return cfg, nil
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

func (c *Config) GetRedisURL() string      { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetGoogleMapsAPIKey() string { return c.GoogleMapsAPIKey }

func (c *Config) GetGeminiAPIKey() string { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string  { return c.GeminiModel }

func (c *Config) GetVoiceAPIKey() string        { return c.VoiceAPIKey }
func (c *Config) GetVoiceBaseURL() string       { return c.VoiceBaseURL }
func (c *Config) GetVoicePhoneNumberID() string { return c.VoicePhoneNumberID }
func (c *Config) GetVoiceWebhookSecret() string { return c.VoiceWebhookSecret }
func (c *Config) GetPublicBaseURL() string      { return c.PublicBaseURL }

func (c *Config) GetLogisticsAPIKey() string        { return c.LogisticsAPIKey }
func (c *Config) GetLogisticsBaseURL() string       { return c.LogisticsBaseURL }
func (c *Config) GetLogisticsWebhookSecret() string { return c.LogisticsWebhookSecret }

func (c *Config) GetMaxVendors() int                { return c.MaxVendors }
func (c *Config) GetMaxAlternatives() int           { return c.MaxAlternatives }
func (c *Config) GetCallMaxRetries() int            { return c.CallMaxRetries }
func (c *Config) GetCallRetryDelay() time.Duration  { return c.CallRetryDelay }
func (c *Config) GetMaxDeliveryRetries() int        { return c.MaxDeliveryRetries }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	val := getEnv(key, "")
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func clampInt(n, low, high int) int {
	if n < low {
		return low
	}
	if n > high {
		return high
	}
	return n
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
