// Package memsession provides an in-memory session store for local
// development and tests. Production deployments use the Redis store.
package memsession

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/soundrise/creator-api/internal/domain/auth"
	"github.com/soundrise/creator-api/internal/ports"
)

// Store implements ports.SessionStore backed by a map.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]domainauth.Session
	now      func() time.Time
}

var _ ports.SessionStore = (*Store)(nil)

// New creates an empty in-memory session store.
func New() *Store {
	return &Store{
		sessions: make(map[string]domainauth.Session),
		now:      time.Now,
	}
}

// NewWithClock creates a store with an injectable clock for tests.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

func (s *Store) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if sess.Expired(s.now()) {
		return fmt.Errorf("session is expired")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) Get(_ context.Context, id string) (domainauth.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return domainauth.Session{}, ErrNotFound
	}
	if sess.Expired(s.now()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len reports the number of stored sessions, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Mint creates and stores a session for the given identity, returning the
// opaque token. Used by the dev seed path so a local instance is usable
// without the upstream auth service.
func (s *Store) Mint(ctx context.Context, id domainauth.Identity, ttl time.Duration) (string, error) {
	tok, err := randomToken(24)
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	sess := domainauth.Session{
		ID:        tok,
		UserID:    id.UserID,
		Handle:    id.Handle,
		Tier:      id.Tier,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.Save(ctx, sess); err != nil {
		return "", err
	}
	return tok, nil
}

// ErrNotFound is returned when a session is not found.
type notFoundError struct{}

func (notFoundError) Error() string { return "session not found" }

var ErrNotFound error = notFoundError{}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
