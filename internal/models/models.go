// Package models holds the records shared between the stores, the access
// gate and the HTTP layer, together with the sentinel errors of the
// application's error taxonomy.
package models

import "errors"

// User represents a registered account. The password is kept only as an
// opaque bcrypt digest; no component outside passhash may interpret it.
type User struct {
	// ID is the unique identifier of the user, a short random key
	// allocated at registration.
	ID string

	// Email is the login key, unique across all users, matched
	// case-sensitively as entered.
	Email string

	// PasswordHash is the opaque digest produced by passhash.
	PasswordHash string
}

// ShortLink is one token → destination mapping owned by a single user.
type ShortLink struct {
	// Token is the short public identifier used in URLs.
	Token string

	// DestinationURL is the user-supplied destination, stored verbatim.
	DestinationURL string

	// OwnerID is the User.ID of the creator, immutable after creation.
	OwnerID string
}

// RegisterForm carries the registration form fields. Only presence is
// validated; emails are stored as entered.
type RegisterForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// LoginForm carries the login form fields.
type LoginForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

// InternalStatsResponse reports store totals on the trusted-subnet
// stats endpoint.
type InternalStatsResponse struct {
	URLs  int `json:"urls"`
	Users int `json:"users"`
}

var (
	// ErrInvalidInput is returned when a required field is missing or empty.
	ErrInvalidInput = errors.New("missing required field")

	// ErrDuplicateEmail is returned when registering an email that is
	// already taken.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrAuthenticationFailed is the base error for failed logins. The
	// wrapped message distinguishes "user not found" from "invalid
	// password" for caller diagnostics.
	ErrAuthenticationFailed = errors.New("authentication failed")
)
