// Package session provides the current-user accessor for the application.
//
// The authenticated user travels in the request context. Components that
// need to know "who is logged in" read it from the context; only the
// session middleware writes it. The Manager owns the credential table and
// the token lifecycle.
package session

import (
	"context"
	"errors"
)

// Sentinel errors for session failures.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionExpired     = errors.New("session expired")
	ErrNoSession          = errors.New("no active session")
)

// User holds the identity of an authenticated user.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// contextKey is the type for context keys in this package.
type contextKey string

// userKey is the context key for the current user.
const userKey contextKey = "session_user"

// FromContext retrieves the current user from the context. The second
// return value is false when no user is logged in.
func FromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey).(*User)
	return u, ok
}

// WithUser stores the current user in the context.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}
