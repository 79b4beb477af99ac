package model

import (
	"encoding/json"
	"testing"
)

func TestCreateConversationResponseAcceptsBothShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bare", body: `{"conversationId":"c1","title":"hello"}`},
		{name: "envelope", body: `{"chat":{"conversationId":"c1","title":"hello"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp CreateConversationResponse
			if err := json.Unmarshal([]byte(tt.body), &resp); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if resp.ConversationID != "c1" || resp.Title != "hello" {
				t.Fatalf("unexpected conversation: %+v", resp.Conversation)
			}
		})
	}
}

func TestCloneDoesNotAliasMessages(t *testing.T) {
	orig := &Conversation{ConversationID: "c1", Messages: []Message{{ID: "m1", Content: "hi"}}}
	cp := orig.Clone()
	cp.Messages[0].Content = "changed"
	cp.Messages = append(cp.Messages, Message{ID: "m2"})

	if orig.Messages[0].Content != "hi" {
		t.Fatalf("clone aliased message content")
	}
	if len(orig.Messages) != 1 {
		t.Fatalf("clone aliased message slice")
	}
	var nilConv *Conversation
	if nilConv.Clone() != nil {
		t.Fatalf("nil clone should be nil")
	}
}

func TestPlaceholder(t *testing.T) {
	if !(Message{ID: PlaceholderPrefix + "abc"}).IsPlaceholder() {
		t.Fatalf("expected placeholder")
	}
	if (Message{ID: "abc"}).IsPlaceholder() {
		t.Fatalf("server id reported as placeholder")
	}
}
