// Package credential persists the bearer token (and the user it belongs to)
// outside in-memory state so a session survives a process restart.
package credential

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/capitalize-ai/conversational-client/internal/model"
)

// Record is what gets persisted for an authenticated session.
type Record struct {
	Token string      `json:"token"`
	User  *model.User `json:"user,omitempty"`
}

// Store holds the single persisted credential. Implementations are safe for concurrent use.
type Store interface {
	// Token returns the current bearer token, or "" when none is stored.
	Token() string
	// Load returns the current record.
	Load() Record
	// Save replaces the record.
	Save(rec Record) error
	// Clear removes the record unconditionally.
	Clear() error
	// ClearIf removes the record only when it still holds token, and reports whether it did.
	ClearIf(token string) (bool, error)
}

// ErrNoExpiry is returned by ExpiresAt for tokens that carry no exp claim or are not JWTs.
var ErrNoExpiry = errors.New("token has no expiry")

// ExpiresAt reads the exp claim of a JWT without verifying its signature;
// the client never holds the signing key.
func ExpiresAt(token string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, ErrNoExpiry
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Expired reports whether token is a JWT whose exp lies before now.
// Opaque tokens are never considered expired here; the server decides.
func Expired(token string, now time.Time) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return false
	}
	return !now.Before(exp)
}
