// Package userstore keeps the registered accounts in process memory and
// owns registration, lookup and credential checking.
package userstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/patric-chuzhbe/tinylinks/internal/models"
)

// TriesToGenerateUniqueID bounds the ID allocation retry loop.
const TriesToGenerateUniqueID = 10

type keyGenerator interface {
	Generate() string
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// UserStore is a mutex-guarded in-memory account store. All reads return
// value copies so callers never observe partial writes.
type UserStore struct {
	mu        sync.RWMutex
	keys      keyGenerator
	hasher    passwordHasher
	byID      map[string]models.User
	idByEmail map[string]string
}

// New returns an empty UserStore using the given ID generator and
// password hasher.
func New(keys keyGenerator, hasher passwordHasher) *UserStore {
	return &UserStore{
		keys:      keys,
		hasher:    hasher,
		byID:      map[string]models.User{},
		idByEmail: map[string]string{},
	}
}

// Register creates a new account. It returns models.ErrInvalidInput when
// email or password is empty and models.ErrDuplicateEmail when the email
// is already taken. Emails are matched case-sensitively as entered.
func (s *UserStore) Register(email, password string) (models.User, error) {
	if email == "" || password == "" {
		return models.User{}, models.ErrInvalidInput
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return models.User{}, fmt.Errorf("hashing password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.idByEmail[email]; taken {
		return models.User{}, models.ErrDuplicateEmail
	}

	id, err := s.allocateID()
	if err != nil {
		return models.User{}, err
	}

	usr := models.User{
		ID:           id,
		Email:        email,
		PasswordHash: digest,
	}
	s.byID[id] = usr
	s.idByEmail[email] = id

	return usr, nil
}

// FindByEmail returns the account registered under email, if any.
func (s *UserStore) FindByEmail(email string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, found := s.idByEmail[email]
	if !found {
		return models.User{}, false
	}
	usr, found := s.byID[id]

	return usr, found
}

// FindByID returns the account with the given ID, if any.
func (s *UserStore) FindByID(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usr, found := s.byID[id]

	return usr, found
}

// Authenticate checks the credentials against the stored digest. On
// failure it returns an error wrapping models.ErrAuthenticationFailed
// whose message tells an unknown email apart from a wrong password.
func (s *UserStore) Authenticate(email, password string) (models.User, error) {
	usr, found := s.FindByEmail(email)
	if !found {
		return models.User{}, fmt.Errorf("%w: user not found", models.ErrAuthenticationFailed)
	}

	if !s.hasher.Verify(password, usr.PasswordHash) {
		return models.User{}, fmt.Errorf("%w: invalid password", models.ErrAuthenticationFailed)
	}

	return usr, nil
}

// Count returns the number of registered accounts.
func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.byID)
}

// allocateID must be called with the write lock held.
func (s *UserStore) allocateID() (string, error) {
	for i := 0; i < TriesToGenerateUniqueID; i++ {
		id := s.keys.Generate()
		if _, exists := s.byID[id]; !exists {
			return id, nil
		}
	}

	return "", errors.New("the number of attempts to generate a unique user ID has been exceeded")
}
