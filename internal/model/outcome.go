package model

import "time"

// Outcome is the final result of a store operation, handed to the notification sink.
type Outcome struct {
	Operation      string    `json:"operation"`
	Success        bool      `json:"success"`
	Kind           string    `json:"kind,omitempty"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	ConversationID string    `json:"conversation_id,omitempty"`
	At             time.Time `json:"at"`
}
