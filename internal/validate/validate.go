// Package validate checks user input before it is dispatched or stored.
// The CLI and the reference server share these rules.
package validate

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/capitalize-ai/conversational-client/internal/model"
)

const (
	maxMessageBytes = 100000
	maxTitleBytes   = 256
	maxNameBytes    = 64
	minPassword     = 6
)

// MessageContent validates message text.
func MessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message cannot be empty")
	}
	if len(content) > maxMessageBytes {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// Title validates a conversation title. Empty titles are allowed.
func Title(title string) error {
	if len(title) > maxTitleBytes {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}

// ID validates a path identifier.
func ID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("id cannot be empty")
	}
	if len(id) > maxNameBytes || strings.ContainsAny(id, "/?#") {
		return errors.New("invalid id format")
	}
	return nil
}

// Credentials validates a login request.
func Credentials(username, password string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("username is required")
	}
	if password == "" {
		return errors.New("password is required")
	}
	return nil
}

// Registration validates a sign-up profile.
func Registration(req model.RegisterRequest) error {
	switch {
	case strings.TrimSpace(req.Username) == "":
		return errors.New("username is required")
	case len(req.Username) > maxNameBytes:
		return errors.New("username exceeds maximum length")
	case strings.TrimSpace(req.Email) == "":
		return errors.New("email is required")
	case len(req.Password) < minPassword:
		return errors.New("password must be at least 6 characters")
	case strings.TrimSpace(req.FirstName) == "":
		return errors.New("first name is required")
	}

	if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		return errors.New("email is malformed")
	}
	if req.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", req.DateOfBirth); err != nil {
			return errors.New("date of birth must be YYYY-MM-DD")
		}
	}
	return nil
}
