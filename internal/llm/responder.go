package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/conversational-client/internal/config"
	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/internal/service"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
)

// Responder answers chat messages with an LLM, sending the conversation so far as context.
type Responder struct {
	client    Client
	model     string
	maxTokens int
	logger    *logger.Logger
}

// NewResponder wraps client as a service.Responder.
func NewResponder(client Client, modelName string, log *logger.Logger) *Responder {
	if log == nil {
		log = logger.Global()
	}
	return &Responder{
		client:    client,
		model:     modelName,
		maxTokens: DefaultMaxTokens,
		logger:    log.Named("llm"),
	}
}

// Provider returns the backing provider name.
func (r *Responder) Provider() string {
	return r.client.Name()
}

// Reply implements service.Responder.
func (r *Responder) Reply(ctx context.Context, history []model.Message, message string) (string, error) {
	start := time.Now()

	messages := make([]ChatMessage, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, ChatMessage{Role: string(model.RoleUser), Content: message})

	resp, err := r.client.Complete(ctx, &CompletionRequest{
		Model:     r.model,
		Messages:  messages,
		MaxTokens: r.maxTokens,
	})
	if err != nil {
		r.logger.Warn("completion failed", zap.String("provider", r.client.Name()), zap.Error(err))
		return "", fmt.Errorf("%s completion: %w", r.client.Name(), err)
	}

	r.logger.Debug("completion done",
		zap.String("provider", r.client.Name()),
		zap.String("model", resp.Model),
		zap.Int("tokens_in", resp.TokensIn),
		zap.Int("tokens_out", resp.TokensOut),
		zap.String("stop_reason", resp.StopReason),
		zap.Duration("latency", time.Since(start)),
	)
	return resp.Content, nil
}

// Select picks the provider configured by cfg. DEFAULT_LLM wins when its key
// is set; otherwise whichever key is present. ok is false when neither is.
func Select(cfg *config.Config) (provider Provider, apiKey string, ok bool) {
	keys := map[Provider]string{
		ProviderAnthropic: cfg.AnthropicAPIKey,
		ProviderOpenAI:    cfg.OpenAIAPIKey,
	}

	if key := keys[Provider(cfg.DefaultLLM)]; key != "" {
		return Provider(cfg.DefaultLLM), key, true
	}
	for _, p := range []Provider{ProviderAnthropic, ProviderOpenAI} {
		if keys[p] != "" {
			return p, keys[p], true
		}
	}
	return "", "", false
}

// ResponderFromConfig returns an LLM responder when an API key is configured
// and the echo responder otherwise.
func ResponderFromConfig(cfg *config.Config, log *logger.Logger) (service.Responder, error) {
	provider, key, ok := Select(cfg)
	if !ok {
		return service.EchoResponder{}, nil
	}

	client, err := NewClient(provider, key)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", provider, err)
	}
	return NewResponder(client, cfg.LLMModel, log), nil
}
