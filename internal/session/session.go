// Package session issues and resolves the signed session handles that
// associate a client with a logged-in user. A handle is an HS256 JWT
// embedding the user ID and the creation timestamp; expiry is enforced
// synchronously at resolve time.
package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Claims are the JWT claims embedded into a session handle.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// Manager signs and verifies session handles.
type Manager struct {
	signingSecretKey []byte
	maxAge           time.Duration
}

// New returns a Manager signing handles with signingSecretKey and
// treating handles older than maxAge as expired.
func New(signingSecretKey []byte, maxAge time.Duration) *Manager {
	return &Manager{
		signingSecretKey: signingSecretKey,
		maxAge:           maxAge,
	}
}

// Create issues a handle for userID, stamped with the creation time and
// an expiry of maxAge from now.
func (m *Manager) Create(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	handle, err := token.SignedString(m.signingSecretKey)
	if err != nil {
		return "", fmt.Errorf("signing session handle: %w", err)
	}

	return handle, nil
}

// Resolve returns the user ID embedded in handle, or the empty string
// when the handle is empty, malformed, signed with the wrong key or
// expired. It never returns an error: any defect means anonymous.
func (m *Manager) Resolve(handle string) string {
	if handle == "" {
		return ""
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		handle,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return m.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return ""
	}

	return claims.UserID
}

// Clear returns the handle representing "no session". Writing it to the
// client logs the client out.
func (m *Manager) Clear() string {
	return ""
}
