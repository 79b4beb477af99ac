package model

import (
	"strings"
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PlaceholderPrefix marks ids generated on the client before the server acknowledges a message.
const PlaceholderPrefix = "temp-"

// Message represents a conversation message.
type Message struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	Role           Role      `json:"role"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversationId"`
}

// IsPlaceholder reports whether the id was generated on the client.
func (m Message) IsPlaceholder() bool {
	return strings.HasPrefix(m.ID, PlaceholderPrefix)
}

// SendMessageRequest is the body of POST /chat/send.
type SendMessageRequest struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

// SendMessageResponse carries the assistant's reply.
type SendMessageResponse struct {
	BotReply       string `json:"botReply"`
	ConversationID string `json:"conversationId"`
}
