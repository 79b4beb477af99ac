package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	errs "github.com/cloudwego/hertz/pkg/common/errors"
)

// Kind classifies every failed call. Each call yields exactly one Kind.
type Kind string

const (
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindNotFound           Kind = "not_found"
	KindServerError        Kind = "server_error"
	KindTimeout            Kind = "timeout"
	KindNetworkUnavailable Kind = "network_unavailable"
	KindOther              Kind = "other"
)

var defaultMessages = map[Kind]string{
	KindUnauthorized:       "Your session has expired. Please login again.",
	KindForbidden:          "You do not have permission to perform this action.",
	KindNotFound:           "The requested resource was not found.",
	KindServerError:        "An internal server error occurred. Please try again later.",
	KindTimeout:            "The request took too long. Please try again.",
	KindNetworkUnavailable: "Unable to connect to the server. Please check your internet connection.",
	KindOther:              "An error occurred.",
}

var titles = map[Kind]string{
	KindUnauthorized:       "Authentication Error",
	KindForbidden:          "Access Denied",
	KindNotFound:           "Not Found",
	KindServerError:        "Server Error",
	KindTimeout:            "Request Timeout",
	KindNetworkUnavailable: "Network Error",
	KindOther:              "Error",
}

// DefaultMessage returns the fixed message used when the server supplies none.
func DefaultMessage(k Kind) string {
	if m, ok := defaultMessages[k]; ok {
		return m
	}
	return defaultMessages[KindOther]
}

// Title returns the human-readable category name for banners.
func Title(k Kind) string {
	if t, ok := titles[k]; ok {
		return t
	}
	return titles[KindOther]
}

// Error is a classified transport failure.
type Error struct {
	Kind    Kind
	Status  int // HTTP status, 0 when no response was received
	Message string
	Err     error
}

// NewError builds a classified error; an empty message falls back to the kind default.
func NewError(kind Kind, status int, message string) *Error {
	if message == "" {
		message = DefaultMessage(kind)
	}
	return &Error{Kind: kind, Status: status, Message: message}
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the classification from err; unclassified errors are KindOther.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindOther
}

// MessageOf returns the human-readable message carried by err.
func MessageOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// classifyStatus maps a non-2xx response to a Kind and extracts the server message.
func classifyStatus(status int, body []byte) *Error {
	var kind Kind
	switch {
	case status == http.StatusUnauthorized:
		kind = KindUnauthorized
	case status == http.StatusForbidden:
		kind = KindForbidden
	case status == http.StatusNotFound:
		kind = KindNotFound
	case status >= 500 && status <= 599:
		kind = KindServerError
	default:
		kind = KindOther
	}
	return NewError(kind, status, serverMessage(body))
}

// classifyDoError maps an error returned by the hertz client, which never got a usable response.
func classifyDoError(err error) *Error {
	kind := KindNetworkUnavailable
	message := ""

	var netErr net.Error
	switch {
	case errors.Is(err, errs.ErrTimeout):
		kind = KindTimeout
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = KindTimeout
	case errors.Is(err, errs.ErrBodyTooLarge):
		kind = KindOther
		message = "response from server is too large"
	case errors.Is(err, context.Canceled):
		kind = KindOther
	}

	e := NewError(kind, 0, message)
	e.Err = err
	return e
}

// serverMessage pulls "message" (or "error") out of a JSON error payload.
func serverMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if m := strings.TrimSpace(payload.Message); m != "" {
		return m
	}
	return strings.TrimSpace(payload.Error)
}
