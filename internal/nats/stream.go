package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/conversational-client/internal/model"
)

const (
	// StreamName is the name of the outcomes stream.
	StreamName = "CHAT_OUTCOMES"

	// SubjectPrefix is the prefix for all outcome subjects.
	SubjectPrefix = "outcome"
)

// ErrNotConnected is returned when publishing while the connection is down.
var ErrNotConnected = errors.New("nats: not connected")

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the outcomes stream exists.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	if _, err := js.Stream(ctx, StreamName); err == nil {
		return nil
	}

	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Description: "Chat client operation outcomes",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// OutcomeSubject returns the subject for an outcome.
func OutcomeSubject(outcome model.Outcome) string {
	result := "success"
	if !outcome.Success {
		result = "failure"
	}
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, outcome.Operation, result)
}

// PublishOutcome publishes an outcome to JetStream and returns its stream sequence.
func (m *StreamManager) PublishOutcome(ctx context.Context, outcome model.Outcome) (uint64, error) {
	if !m.client.IsConnected() {
		return 0, ErrNotConnected
	}

	data, err := json.Marshal(outcome)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal outcome: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, OutcomeSubject(outcome), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish outcome: %w", err)
	}

	return ack.Sequence, nil
}
