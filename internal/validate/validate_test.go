package validate

import (
	"strings"
	"testing"

	"github.com/capitalize-ai/conversational-client/internal/model"
)

func TestMessageContent(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr bool
	}{
		{name: "plain", in: "hi"},
		{name: "empty", in: "", wantErr: true},
		{name: "whitespace", in: " \n\t", wantErr: true},
		{name: "too long", in: strings.Repeat("a", maxMessageBytes+1), wantErr: true},
		{name: "invalid utf8", in: "\xff\xfe", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := MessageContent(tt.in); (err != nil) != tt.wantErr {
				t.Fatalf("MessageContent(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}

func TestRegistration(t *testing.T) {
	valid := model.RegisterRequest{
		Username:  "carol",
		Email:     "carol@example.com",
		Password:  "secret1",
		FirstName: "Carol",
	}

	tests := []struct {
		name    string
		mutate  func(*model.RegisterRequest)
		wantErr string
	}{
		{name: "valid", mutate: func(*model.RegisterRequest) {}},
		{name: "optional fields", mutate: func(r *model.RegisterRequest) { r.LastName = "Ng"; r.DateOfBirth = "1990-02-03" }},
		{name: "missing username", mutate: func(r *model.RegisterRequest) { r.Username = " " }, wantErr: "username is required"},
		{name: "missing email", mutate: func(r *model.RegisterRequest) { r.Email = "" }, wantErr: "email is required"},
		{name: "malformed email", mutate: func(r *model.RegisterRequest) { r.Email = "carol.example.com" }, wantErr: "email is malformed"},
		{name: "display name email", mutate: func(r *model.RegisterRequest) { r.Email = "Carol <carol@example.com>" }, wantErr: "email is malformed"},
		{name: "short password", mutate: func(r *model.RegisterRequest) { r.Password = "123" }, wantErr: "password"},
		{name: "missing first name", mutate: func(r *model.RegisterRequest) { r.FirstName = "" }, wantErr: "first name"},
		{name: "bad birth date", mutate: func(r *model.RegisterRequest) { r.DateOfBirth = "03/02/1990" }, wantErr: "date of birth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := Registration(req)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestIDAndTitle(t *testing.T) {
	if ID("c1") != nil || ID("") == nil || ID("a/b") == nil {
		t.Fatalf("ID validation")
	}
	if Title("") != nil || Title(strings.Repeat("t", maxTitleBytes+1)) == nil {
		t.Fatalf("Title validation")
	}
	if Credentials("alice", "") == nil || Credentials("", "x") == nil || Credentials("alice", "x") != nil {
		t.Fatalf("Credentials validation")
	}
}
