package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
)

// Responder produces the assistant's answer to a user message.
type Responder interface {
	Reply(ctx context.Context, history []model.Message, message string) (string, error)
}

// EchoResponder answers by repeating the message.
type EchoResponder struct{}

func (EchoResponder) Reply(_ context.Context, _ []model.Message, message string) (string, error) {
	return "You said: " + message, nil
}

// MessageService handles message operations.
type MessageService struct {
	conversationService *ConversationService
	responder           Responder
	logger              *logger.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(conversationService *ConversationService, responder Responder, log *logger.Logger) *MessageService {
	if responder == nil {
		responder = EchoResponder{}
	}
	return &MessageService{
		conversationService: conversationService,
		responder:           responder,
		logger:              log,
	}
}

// Send stores the user message, asks the responder, and stores the reply.
// Both turns are kept server-side; only the reply text is returned.
func (s *MessageService) Send(ctx context.Context, userID string, req *model.SendMessageRequest) (*model.SendMessageResponse, error) {
	conv, err := s.conversationService.Get(ctx, userID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	reply, err := s.responder.Reply(ctx, conv.Messages, req.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}

	now := time.Now()
	userMsg := model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Content:        req.Message,
		Role:           model.RoleUser,
		Timestamp:      now,
		ConversationID: req.ConversationID,
	}
	assistantMsg := model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		Content:        reply,
		Role:           model.RoleAssistant,
		Timestamp:      now,
		ConversationID: req.ConversationID,
	}

	if err := s.conversationService.AppendMessages(ctx, userID, req.ConversationID, userMsg, assistantMsg); err != nil {
		return nil, err
	}

	s.logger.Debug("message answered",
		zap.String("conversation_id", req.ConversationID),
		zap.Int("reply_length", len(reply)),
	)

	return &model.SendMessageResponse{
		BotReply:       reply,
		ConversationID: req.ConversationID,
	}, nil
}
