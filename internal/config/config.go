// Package config provides environment configuration for the chat client.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// API settings
	APIBaseURL     string
	APITimeout     time.Duration
	CredentialFile string

	// NATS outcome publishing; empty URL disables it
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Debug server for the interactive session
	MetricsAddr string

	// Mock server settings
	MockAddr          string
	JWTSecret         string
	JWTExpiration     time.Duration
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// LLM settings for the mock server's assistant; no key keeps the echo assistant
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultLLM      string
	LLMModel        string

	// Logging
	LogLevel    string
	Environment string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables, after an optional .env file.
func Load() *Config {
	// A missing .env is normal; the process environment is used as-is.
	_ = godotenv.Load()

	return &Config{
		// API
		APIBaseURL:     getEnv("CHAT_API_URL", "http://localhost:8080/api"),
		APITimeout:     getDurationEnv("CHAT_API_TIMEOUT", 10*time.Second),
		CredentialFile: getEnv("CHAT_CREDENTIAL_FILE", defaultCredentialFile()),

		// NATS
		NATSURL:      getEnv("NATS_URL", ""),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		MetricsAddr: getEnv("CHAT_METRICS_ADDR", ""),

		// Mock server
		MockAddr:          getEnv("MOCK_ADDR", ":8080"),
		JWTSecret:         getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration:     getDurationEnv("JWT_EXPIRATION", 24*time.Hour),
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// LLM
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultLLM:      getEnv("DEFAULT_LLM", "anthropic"),
		LLMModel:        getEnv("LLM_MODEL", ""),

		// Logging
		LogLevel:    getEnv("LOG_LEVEL", "warn"),
		Environment: getEnv("ENV", "production"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

// IsDevelopment reports whether ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func defaultCredentialFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".chatctl", "credentials.json")
	}
	return filepath.Join(home, ".chatctl", "credentials.json")
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
