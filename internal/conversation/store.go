// Package conversation holds the conversation list, the selected conversation
// and its message history, and the status of every conversation operation.
package conversation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/internal/notify"
	"github.com/capitalize-ai/conversational-client/internal/opstate"
	"github.com/capitalize-ai/conversational-client/internal/transport"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
	"github.com/capitalize-ai/conversational-client/pkg/metrics"
)

// ErrNotDispatched is returned by Send when the message is empty or no conversation
// is selected. Nothing is sent and no state changes.
var ErrNotDispatched = errors.New("message not sent: empty text or no conversation selected")

// Sender is the transport as seen by the store.
type Sender interface {
	Send(ctx context.Context, method, path string, body, out any) error
}

// Identity supplies the id of the signed-in user.
type Identity interface {
	UserID() string
}

// SendResult is what a successful Send returns.
type SendResult struct {
	// UserMessage is the message as appended to the current conversation.
	UserMessage model.Message
	// Reply is the assistant's answer. It is not stored in history.
	Reply string
}

// Snapshot is a deep copy of the store.
type Snapshot struct {
	Conversations []model.Conversation
	Current       *model.Conversation
	Status        map[Operation]opstate.Status
}

// Store is the conversation state container. It is safe for concurrent use.
type Store struct {
	api      Sender
	identity Identity
	notifier notify.Notifier
	logger   *logger.Logger
	now      func() time.Time

	mu            sync.RWMutex
	conversations []model.Conversation
	current       *model.Conversation
	status        map[Operation]opstate.Status
}

// New creates an empty conversation store.
func New(api Sender, identity Identity, notifier notify.Notifier, log *logger.Logger) *Store {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if log == nil {
		log = logger.Global()
	}
	return &Store{
		api:      api,
		identity: identity,
		notifier: notifier,
		logger:   log.Named("conversation"),
		now:      time.Now,
		status:   make(map[Operation]opstate.Status),
	}
}

// List replaces the whole collection with the server's. Entries the server no
// longer returns are dropped.
func (s *Store) List(ctx context.Context) error {
	s.begin(OpList)

	var list []model.Conversation
	if err := s.api.Send(ctx, http.MethodGet, transport.EndpointConversations, nil, &list); err != nil {
		s.reject(ctx, OpList, "", err)
		return err
	}

	s.mu.Lock()
	s.conversations = cloneAll(list)
	s.status[OpList] = opstate.Done()
	s.mu.Unlock()

	metrics.RecordOperation("conversation", string(OpList), true)
	s.logger.Debug("conversations listed", zap.Int("count", len(list)))
	return nil
}

// Fetch replaces the current conversation with the server's view of id, history included.
func (s *Store) Fetch(ctx context.Context, id string) error {
	s.begin(OpFetch)

	var conv model.Conversation
	err := s.api.Send(ctx, http.MethodGet, transport.ConversationPath(id), nil, &conv)
	if err == nil && conv.ConversationID == "" {
		err = transport.NewError(transport.KindOther, http.StatusOK, "malformed conversation")
	}
	if err != nil {
		s.reject(ctx, OpFetch, id, err)
		return err
	}

	s.mu.Lock()
	s.current = conv.Clone()
	s.status[OpFetch] = opstate.Done()
	s.mu.Unlock()

	metrics.RecordOperation("conversation", string(OpFetch), true)
	return nil
}

// Create starts a conversation, puts it first in the collection and selects it.
// Callers re-list afterwards to pick up server-side ordering.
func (s *Store) Create(ctx context.Context, title string) (*model.Conversation, error) {
	s.begin(OpCreate)

	var resp model.CreateConversationResponse
	err := s.api.Send(ctx, http.MethodPost, transport.EndpointCreateConversation, model.CreateConversationRequest{Title: title}, &resp)
	if err == nil && resp.ConversationID == "" {
		err = transport.NewError(transport.KindOther, http.StatusOK, "malformed conversation")
	}
	if err != nil {
		s.reject(ctx, OpCreate, "", err)
		return nil, err
	}

	conv := resp.Conversation
	s.mu.Lock()
	s.conversations = append([]model.Conversation{*conv.Clone()}, s.conversations...)
	s.current = conv.Clone()
	s.status[OpCreate] = opstate.Done()
	s.mu.Unlock()

	metrics.RecordOperation("conversation", string(OpCreate), true)
	out := notify.Success(string(OpCreate), "Conversation Created", conv.Title)
	out.ConversationID = conv.ConversationID
	s.notifier.Notify(ctx, out)
	return conv.Clone(), nil
}

// Send submits text to conversationID (the current one when empty) and waits for
// the assistant. The user message is appended to the current conversation only
// once the server accepts it; on failure history is left as it was.
func (s *Store) Send(ctx context.Context, conversationID, text string) (*SendResult, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if text == "" || s.current == nil {
		s.mu.Unlock()
		return nil, ErrNotDispatched
	}
	if conversationID == "" {
		conversationID = s.current.ConversationID
	}
	s.status[OpSend] = opstate.Running()
	s.mu.Unlock()

	msg := model.Message{
		ID:             model.PlaceholderPrefix + uuid.NewString(),
		Content:        text,
		Role:           model.RoleUser,
		Timestamp:      s.now(),
		ConversationID: conversationID,
	}

	var resp model.SendMessageResponse
	err := s.api.Send(ctx, http.MethodPost, transport.EndpointSendMessage, model.SendMessageRequest{
		UserID:         s.identity.UserID(),
		ConversationID: conversationID,
		Message:        text,
	}, &resp)
	if err != nil {
		s.reject(ctx, OpSend, conversationID, err)
		return nil, err
	}

	s.mu.Lock()
	if s.current != nil && s.current.ConversationID == conversationID {
		s.current.Messages = append(s.current.Messages, msg)
		s.current.UpdatedAt = msg.Timestamp
	}
	for i := range s.conversations {
		if s.conversations[i].ConversationID == conversationID {
			if s.conversations[i].Messages != nil {
				s.conversations[i].Messages = append(s.conversations[i].Messages, msg)
			}
			s.conversations[i].UpdatedAt = msg.Timestamp
			break
		}
	}
	s.status[OpSend] = opstate.Done()
	s.mu.Unlock()

	metrics.RecordOperation("conversation", string(OpSend), true)
	metrics.MessagesSentTotal.Inc()

	out := notify.Success(string(OpSend), "Assistant", resp.BotReply)
	out.ConversationID = conversationID
	s.notifier.Notify(ctx, out)

	return &SendResult{UserMessage: msg, Reply: resp.BotReply}, nil
}

// Delete removes id on the server and from the collection. If id was selected
// the selection is cleared; no replacement is chosen.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.begin(OpDelete)

	if err := s.api.Send(ctx, http.MethodDelete, transport.DeleteConversationPath(id), nil, nil); err != nil {
		s.reject(ctx, OpDelete, id, err)
		return err
	}

	s.mu.Lock()
	kept := s.conversations[:0]
	for _, c := range s.conversations {
		if c.ConversationID != id {
			kept = append(kept, c)
		}
	}
	s.conversations = kept
	if s.current != nil && s.current.ConversationID == id {
		s.current = nil
	}
	s.status[OpDelete] = opstate.Done()
	s.mu.Unlock()

	metrics.RecordOperation("conversation", string(OpDelete), true)
	out := notify.Success(string(OpDelete), "Conversation Deleted", "The conversation was removed.")
	out.ConversationID = id
	s.notifier.Notify(ctx, out)
	return nil
}

// Select makes the listed conversation id current without a network call.
// An empty id clears the selection. It reports whether id was found.
func (s *Store) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.current = nil
		return true
	}
	for i := range s.conversations {
		if s.conversations[i].ConversationID == id {
			s.current = s.conversations[i].Clone()
			return true
		}
	}
	return false
}

// Reset drops all conversation state, as after the session ends.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = nil
	s.current = nil
	s.status = make(map[Operation]opstate.Status)
}

// ClearError resets op from error to idle. It is idempotent.
func (s *Store) ClearError(op Operation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status[op].Failed() {
		s.status[op] = opstate.Done()
	}
}

// Status returns the status of one operation kind.
func (s *Store) Status(op Operation) opstate.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[op]
}

// Current returns a copy of the selected conversation, or nil.
func (s *Store) Current() *model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Conversations returns a copy of the collection.
func (s *Store) Conversations() []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.conversations)
}

// Snapshot returns a deep copy of the whole store.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make(map[Operation]opstate.Status, len(s.status))
	for op, st := range s.status {
		statuses[op] = st
	}
	return Snapshot{
		Conversations: cloneAll(s.conversations),
		Current:       s.current.Clone(),
		Status:        statuses,
	}
}

func (s *Store) begin(op Operation) {
	s.mu.Lock()
	s.status[op] = opstate.Running()
	s.mu.Unlock()
}

func (s *Store) reject(ctx context.Context, op Operation, conversationID string, err error) {
	s.mu.Lock()
	s.status[op] = opstate.Failure(err)
	s.mu.Unlock()

	metrics.RecordOperation("conversation", string(op), false)
	s.logger.WithOperation(string(op), s.identity.UserID()).Info("operation failed",
		zap.String("conversation_id", conversationID),
		zap.Error(err),
	)

	out := notify.Failure(string(op), err)
	out.ConversationID = conversationID
	s.notifier.Notify(ctx, out)
}

func cloneAll(list []model.Conversation) []model.Conversation {
	if list == nil {
		return nil
	}
	out := make([]model.Conversation, len(list))
	for i := range list {
		out[i] = *list[i].Clone()
	}
	return out
}
