package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CHAT_API_URL", "")
	t.Setenv("CHAT_API_TIMEOUT", "")
	t.Setenv("NATS_URL", "")

	cfg := Load()
	if cfg.APIBaseURL != "http://localhost:8080/api" {
		t.Fatalf("base url: got %q", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 10*time.Second {
		t.Fatalf("timeout: got %v", cfg.APITimeout)
	}
	if cfg.NATSURL != "" {
		t.Fatalf("nats should be disabled by default, got %q", cfg.NATSURL)
	}
	if cfg.CredentialFile == "" {
		t.Fatalf("credential file must have a default")
	}
}

func TestLoadLLMKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("DEFAULT_LLM", "")

	cfg := Load()
	if cfg.OpenAIAPIKey != "sk-test" || cfg.AnthropicAPIKey != "" {
		t.Fatalf("keys: openai=%q anthropic=%q", cfg.OpenAIAPIKey, cfg.AnthropicAPIKey)
	}
	if cfg.DefaultLLM != "anthropic" {
		t.Fatalf("default llm: got %q", cfg.DefaultLLM)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHAT_API_URL", "https://chat.example.com/api")
	t.Setenv("CHAT_API_TIMEOUT", "3s")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("RATE_LIMIT_REQUESTS", "7")
	t.Setenv("ENV", "development")

	cfg := Load()
	if cfg.APIBaseURL != "https://chat.example.com/api" {
		t.Fatalf("base url: got %q", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 3*time.Second {
		t.Fatalf("timeout: got %v", cfg.APITimeout)
	}
	if !cfg.TracingEnabled {
		t.Fatalf("tracing should be enabled")
	}
	if cfg.RateLimitRequests != 7 {
		t.Fatalf("rate limit: got %d", cfg.RateLimitRequests)
	}
	if !cfg.IsDevelopment() {
		t.Fatalf("expected development environment")
	}
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("CHAT_API_TIMEOUT", "soon")
	t.Setenv("RATE_LIMIT_REQUESTS", "many")

	cfg := Load()
	if cfg.APITimeout != 10*time.Second {
		t.Fatalf("timeout fallback: got %v", cfg.APITimeout)
	}
	if cfg.RateLimitRequests != 120 {
		t.Fatalf("rate limit fallback: got %d", cfg.RateLimitRequests)
	}
}
