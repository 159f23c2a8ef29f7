// Package auth is the identity provider consumed by the identity service.
//
// The Provider interface is the boundary contract: session issuing, session
// lookup, sign-out and user updates. LocalProvider implements it on top of
// the auth_users table with bcrypt passwords and signed JWT sessions.
package auth

import (
	"context"
	"errors"
	"time"
)

// Error codes returned by providers
const (
	CodeValidationFailed   = "validation_failed"
	CodeWeakPassword       = "weak_password"
	CodeUserAlreadyExists  = "user_already_exists"
	CodeInvalidCredentials = "invalid_credentials"
	CodeSessionNotFound    = "session_not_found"
)

// MinPasswordLength is the shortest password accepted on sign-up and change
const MinPasswordLength = 6

// Error is a provider failure carrying a machine readable code
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsCode reports whether err is a provider error with the given code
func IsCode(err error, code string) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}

// User is an authenticated identity
type User struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	Metadata  map[string]any `json:"user_metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

// FullName returns the full_name entry of the user metadata, if any
func (u *User) FullName() string {
	if name, ok := u.Metadata["full_name"].(string); ok {
		return name
	}
	return ""
}

// Session is a signed-in session
type Session struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

// Result is returned by sign-up and sign-in
type Result struct {
	User    User     `json:"user"`
	Session *Session `json:"session"`
}

// UserAttributes lists what UpdateUser may change. Nil fields are left untouched.
type UserAttributes struct {
	Password *string
	Data     map[string]any
}

// Provider is the contract of an identity provider.
//
// GetSession returns (nil, nil) when the token does not identify a live
// session; an error means the lookup itself failed.
type Provider interface {
	GetSession(ctx context.Context, accessToken string) (*Session, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*Result, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Result, error)
	SignOut(ctx context.Context, accessToken string) error
	UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error)
}
