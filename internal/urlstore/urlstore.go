// Package urlstore owns the token → ShortLink mapping. It allocates
// fresh tokens on creation and serializes all mutations behind a single
// mutex; ownership policy is layered on top by the access gate.
package urlstore

import (
	"errors"
	"sync"

	"github.com/patric-chuzhbe/tinylinks/internal/models"
)

// TriesToGenerateUniqueToken bounds the token allocation retry loop.
// At a 62^6 keyspace the bound is practically unreachable; it only keeps
// the loop bounded.
const TriesToGenerateUniqueToken = 10

type keyGenerator interface {
	Generate() string
}

// UrlStore is a mutex-guarded in-memory link store.
type UrlStore struct {
	mu    sync.RWMutex
	keys  keyGenerator
	links map[string]models.ShortLink
}

// New returns an empty UrlStore allocating tokens with keys.
func New(keys keyGenerator) *UrlStore {
	return &UrlStore{
		keys:  keys,
		links: map[string]models.ShortLink{},
	}
}

// Create allocates a fresh unique token, stores the mapping and returns
// the token. The generate-check-insert sequence runs under the write
// lock, so two concurrent calls can never allocate the same token.
func (s *UrlStore) Create(ownerID, destinationURL string) (string, error) {
	if ownerID == "" || destinationURL == "" {
		return "", models.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.allocateToken()
	if err != nil {
		return "", err
	}

	s.links[token] = models.ShortLink{
		Token:          token,
		DestinationURL: destinationURL,
		OwnerID:        ownerID,
	}

	return token, nil
}

// Get returns the full record for token, or found=false when absent.
// It does not filter by owner: the public redirect must resolve any
// token regardless of who created it.
func (s *UrlStore) Get(token string) (models.ShortLink, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	link, found := s.links[token]

	return link, found
}

// ListByOwner returns every link whose OwnerID equals ownerID, in no
// particular order.
func (s *UrlStore) ListByOwner(ownerID string) []models.ShortLink {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.ShortLink{}
	for _, link := range s.links {
		if link.OwnerID == ownerID {
			result = append(result, link)
		}
	}

	return result
}

// Update replaces the destination of an existing link in place. It
// returns false when the token is absent. The caller must have already
// authorized the owner match.
func (s *UrlStore) Update(token, newDestinationURL string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, found := s.links[token]
	if !found {
		return false
	}
	link.DestinationURL = newDestinationURL
	s.links[token] = link

	return true
}

// Delete removes the entry for token, reporting whether it existed.
func (s *UrlStore) Delete(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found := s.links[token]
	if found {
		delete(s.links, token)
	}

	return found
}

// Count returns the number of live links.
func (s *UrlStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.links)
}

// allocateToken must be called with the write lock held.
func (s *UrlStore) allocateToken() (string, error) {
	for i := 0; i < TriesToGenerateUniqueToken; i++ {
		token := s.keys.Generate()
		if _, exists := s.links[token]; !exists {
			return token, nil
		}
	}

	return "", errors.New("the number of attempts to generate a unique token has been exceeded")
}
