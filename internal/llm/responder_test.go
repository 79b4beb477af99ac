package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/capitalize-ai/conversational-client/internal/config"
	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/internal/service"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
)

func TestResponderFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		provider string // empty means the echo responder
	}{
		{
			name: "no keys echoes",
			cfg:  config.Config{DefaultLLM: "anthropic"},
		},
		{
			name:     "openai key only",
			cfg:      config.Config{OpenAIAPIKey: "sk-openai", DefaultLLM: "anthropic"},
			provider: "openai",
		},
		{
			name:     "anthropic key only",
			cfg:      config.Config{AnthropicAPIKey: "sk-ant", DefaultLLM: "openai"},
			provider: "anthropic",
		},
		{
			name:     "both keys follow the default",
			cfg:      config.Config{AnthropicAPIKey: "sk-ant", OpenAIAPIKey: "sk-openai", DefaultLLM: "openai"},
			provider: "openai",
		},
		{
			name:     "unknown default falls back to anthropic",
			cfg:      config.Config{AnthropicAPIKey: "sk-ant", OpenAIAPIKey: "sk-openai", DefaultLLM: "mistral"},
			provider: "anthropic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			r, err := ResponderFromConfig(&cfg, logger.NewNop())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tt.provider == "" {
				if _, ok := r.(service.EchoResponder); !ok {
					t.Fatalf("expected echo responder, got %T", r)
				}
				return
			}

			llmResponder, ok := r.(*Responder)
			if !ok {
				t.Fatalf("expected *Responder, got %T", r)
			}
			if got := llmResponder.Provider(); got != tt.provider {
				t.Errorf("provider = %q, want %q", got, tt.provider)
			}
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	for _, p := range []Provider{ProviderAnthropic, ProviderOpenAI} {
		if _, err := NewClient(p, ""); !errors.Is(err, ErrNoAPIKey) {
			t.Errorf("%s: expected ErrNoAPIKey, got %v", p, err)
		}
	}
	if _, err := NewClient("mistral", "key"); err == nil {
		t.Errorf("expected error for unknown provider")
	}
}

// fakeClient records the last request.
type fakeClient struct {
	last  *CompletionRequest
	reply string
	err   error
}

func (f *fakeClient) Complete(_ context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &CompletionResponse{Content: f.reply, Model: "fake"}, nil
}

func (f *fakeClient) Name() string { return "fake" }

func TestReplySendsHistory(t *testing.T) {
	fc := &fakeClient{reply: "hi there"}
	r := NewResponder(fc, "small", logger.NewNop())

	history := []model.Message{
		{Role: model.RoleUser, Content: "hello"},
		{Role: model.RoleAssistant, Content: "hey"},
		{Role: model.RoleAssistant, Content: "  "},
	}
	got, err := r.Reply(context.Background(), history, "how are you")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if got != "hi there" {
		t.Errorf("reply = %q", got)
	}

	if fc.last.Model != "small" || fc.last.MaxTokens != DefaultMaxTokens {
		t.Errorf("request = %+v", fc.last)
	}
	want := []ChatMessage{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hey"},
		{Role: "user", Content: "how are you"},
	}
	if len(fc.last.Messages) != len(want) {
		t.Fatalf("messages = %+v", fc.last.Messages)
	}
	for i := range want {
		if fc.last.Messages[i] != want[i] {
			t.Errorf("message %d = %+v, want %+v", i, fc.last.Messages[i], want[i])
		}
	}
}

func TestReplyWrapsProviderError(t *testing.T) {
	boom := errors.New("overloaded")
	r := NewResponder(&fakeClient{err: boom}, "", nil)

	_, err := r.Reply(context.Background(), nil, "hello")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}
