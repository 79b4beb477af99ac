package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/conversational-client/internal/model"
	natsclient "github.com/capitalize-ai/conversational-client/internal/nats"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
	"github.com/capitalize-ai/conversational-client/pkg/metrics"
)

// OutcomePublisher is the JetStream side of the NATS notifier.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome model.Outcome) (uint64, error)
}

// NATS publishes outcomes to JetStream. Publish failures are logged, never surfaced to the store.
type NATS struct {
	publisher OutcomePublisher
	timeout   time.Duration
	logger    *logger.Logger
}

// NewNATS creates a NATS notifier.
func NewNATS(publisher OutcomePublisher, log *logger.Logger) *NATS {
	return &NATS{
		publisher: publisher,
		timeout:   2 * time.Second,
		logger:    log.Named("notify.nats"),
	}
}

// ConnectNATS dials NATS, ensures the outcomes stream and returns the notifier plus the client to close.
func ConnectNATS(ctx context.Context, cfg natsclient.Config, log *logger.Logger) (*NATS, *natsclient.Client, error) {
	client, err := natsclient.Connect(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	streams := natsclient.NewStreamManager(client)
	if err := streams.EnsureStream(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}

	return NewNATS(streams, log), client, nil
}

func (n *NATS) Notify(ctx context.Context, outcome model.Outcome) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	seq, err := n.publisher.PublishOutcome(ctx, outcome)
	if err != nil {
		metrics.NotificationsPublishFailures.WithLabelValues("nats").Inc()
		n.logger.Warn("failed to publish outcome",
			zap.String("operation", outcome.Operation),
			zap.Error(err),
		)
		return
	}
	n.logger.Debug("outcome published", zap.Uint64("sequence", seq))
}
