// Package service provides the in-memory business logic behind the reference server.
package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
)

// ErrConversationNotFound is returned for an unknown, deleted or foreign conversation.
var ErrConversationNotFound = errors.New("conversation not found")

type conversationRecord struct {
	ownerID string
	conv    model.Conversation
}

// ConversationService handles conversation operations.
type ConversationService struct {
	logger *logger.Logger

	// In-memory storage; history lives with the conversation.
	conversations map[string]*conversationRecord
	mu            sync.RWMutex
}

// NewConversationService creates a new conversation service.
func NewConversationService(log *logger.Logger) *ConversationService {
	return &ConversationService{
		logger:        log,
		conversations: make(map[string]*conversationRecord),
	}
}

// Create creates a new conversation.
func (s *ConversationService) Create(ctx context.Context, userID, title string) (*model.Conversation, error) {
	now := time.Now()
	if title == "" {
		title = "New Chat"
	}

	rec := &conversationRecord{
		ownerID: userID,
		conv: model.Conversation{
			ConversationID: uuid.Must(uuid.NewV7()).String(),
			Title:          title,
			CreatedAt:      now,
			UpdatedAt:      now,
			Messages:       []model.Message{},
		},
	}

	s.mu.Lock()
	s.conversations[rec.conv.ConversationID] = rec
	s.mu.Unlock()

	s.logger.Info("conversation created",
		zap.String("conversation_id", rec.conv.ConversationID),
		zap.String("user_id", userID),
	)

	return rec.conv.Clone(), nil
}

// Get retrieves a conversation with its history.
func (s *ConversationService) Get(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.lookup(userID, conversationID)
	if err != nil {
		return nil, err
	}
	return rec.conv.Clone(), nil
}

// List returns the user's conversations, most recently updated first, without history.
func (s *ConversationService) List(ctx context.Context, userID string) ([]model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]model.Conversation, 0)
	for _, rec := range s.conversations {
		if rec.ownerID != userID {
			continue
		}
		c := rec.conv
		c.Messages = nil
		convs = append(convs, c)
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

// Delete removes a conversation.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(userID, conversationID); err != nil {
		return err
	}
	delete(s.conversations, conversationID)
	return nil
}

// AppendMessages adds messages to a conversation's history.
func (s *ConversationService) AppendMessages(ctx context.Context, userID, conversationID string, msgs ...model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(userID, conversationID)
	if err != nil {
		return err
	}
	rec.conv.Messages = append(rec.conv.Messages, msgs...)
	rec.conv.UpdatedAt = time.Now()
	return nil
}

// lookup must be called with mu held.
func (s *ConversationService) lookup(userID, conversationID string) (*conversationRecord, error) {
	rec, ok := s.conversations[conversationID]
	if !ok || rec.ownerID != userID {
		return nil, ErrConversationNotFound
	}
	return rec, nil
}
