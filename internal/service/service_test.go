package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/capitalize-ai/conversational-client/internal/model"
	"github.com/capitalize-ai/conversational-client/pkg/logger"
)

func TestUserRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(logger.NewNop())

	u, err := svc.Register(ctx, &model.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "secret", FirstName: "Alice"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID == "" || u.Username != "alice" {
		t.Fatalf("user = %+v", u)
	}

	if _, err := svc.Register(ctx, &model.RegisterRequest{Username: "ALICE", Email: "x@example.com", Password: "secret"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate username: %v", err)
	}
	if _, err := svc.Register(ctx, &model.RegisterRequest{Username: "bob", Email: "Alice@Example.com", Password: "secret"}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate email: %v", err)
	}

	got, err := svc.Authenticate(ctx, "alice", "secret")
	if err != nil || got.ID != u.ID {
		t.Fatalf("authenticate: %+v, %v", got, err)
	}
	if _, err := svc.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: %v", err)
	}

	svc.Revoke("jti-1")
	if !svc.Revoked("jti-1") || svc.Revoked("jti-2") {
		t.Fatalf("revocation")
	}
}

func TestConversationsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	svc := NewConversationService(logger.NewNop())

	a, _ := svc.Create(ctx, "u1", "first")
	time.Sleep(time.Millisecond)
	b, _ := svc.Create(ctx, "u1", "")
	_, _ = svc.Create(ctx, "u2", "theirs")

	if b.Title != "New Chat" {
		t.Fatalf("default title = %q", b.Title)
	}

	list, _ := svc.List(ctx, "u1")
	if len(list) != 2 || list[0].ConversationID != b.ConversationID {
		t.Fatalf("list = %+v", list)
	}

	if _, err := svc.Get(ctx, "u2", a.ConversationID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("foreign get: %v", err)
	}
	if err := svc.Delete(ctx, "u2", a.ConversationID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", a.ConversationID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, "u1", a.ConversationID); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("deleted conversation still readable")
	}
}

func TestMessageSendStoresBothTurns(t *testing.T) {
	ctx := context.Background()
	convs := NewConversationService(logger.NewNop())
	msgs := NewMessageService(convs, nil, logger.NewNop())

	c, _ := convs.Create(ctx, "u1", "chat")
	resp, err := msgs.Send(ctx, "u1", &model.SendMessageRequest{UserID: "u1", ConversationID: c.ConversationID, Message: "hi"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.BotReply != "You said: hi" || resp.ConversationID != c.ConversationID {
		t.Fatalf("resp = %+v", resp)
	}

	got, _ := convs.Get(ctx, "u1", c.ConversationID)
	if len(got.Messages) != 2 || got.Messages[0].Role != model.RoleUser || got.Messages[1].Role != model.RoleAssistant {
		t.Fatalf("history = %+v", got.Messages)
	}

	if _, err := msgs.Send(ctx, "u1", &model.SendMessageRequest{ConversationID: "missing", Message: "hi"}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("missing conversation: %v", err)
	}
}
