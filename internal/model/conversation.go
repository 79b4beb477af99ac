// Package model defines data structures shared by the chat client and the mock server.
package model

import (
	"encoding/json"
	"time"
)

// Conversation represents a conversation thread and, when fetched, its history.
type Conversation struct {
	ConversationID string    `json:"conversationId"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Messages       []Message `json:"messages"`
}

// Clone returns a deep copy so callers never alias store state.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	if c.Messages != nil {
		out.Messages = make([]Message, len(c.Messages))
		copy(out.Messages, c.Messages)
	}
	return &out
}

// CreateConversationRequest is the body of POST /chat/create-chat.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// CreateConversationResponse accepts both a bare conversation and the
// {"chat": {...}} envelope some servers return.
type CreateConversationResponse struct {
	Conversation
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *CreateConversationResponse) UnmarshalJSON(data []byte) error {
	var envelope struct {
		Chat *Conversation `json:"chat"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	if envelope.Chat != nil {
		r.Conversation = *envelope.Chat
		return nil
	}
	return json.Unmarshal(data, &r.Conversation)
}
