package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
)

// Log writes outcomes to the structured log.
type Log struct {
	logger *logger.Logger
}

// NewLog creates a log-backed notifier.
func NewLog(log *logger.Logger) *Log {
	return &Log{logger: log.Named("notify")}
}

func (l *Log) Notify(_ context.Context, outcome model.Outcome) {
	fields := []zap.Field{
		zap.String("operation", outcome.Operation),
		zap.Bool("success", outcome.Success),
		zap.String("title", outcome.Title),
		zap.String("message", outcome.Message),
	}
	if outcome.Kind != "" {
		fields = append(fields, zap.String("kind", outcome.Kind))
	}
	if outcome.ConversationID != "" {
		fields = append(fields, zap.String("conversation_id", outcome.ConversationID))
	}

	if outcome.Success {
		l.logger.Info("operation succeeded", fields...)
		return
	}
	l.logger.Warn("operation failed", fields...)
}
