package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/roach88/postsync/internal/clock"
	"github.com/roach88/postsync/internal/metrics"
)

// Durable storage keys.
const (
	KeyToken           = "token"
	KeyTokenExpiration = "tokenExpiration"
)

// Storage is the durable key-value capability the session persists to.
// kv.Store implements it.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetAll(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// Session is a point-in-time copy of the session state.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Store owns the current session.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	storage Storage
	clock   clock.Clock
	metrics *metrics.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics updates the session gauge on every change.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// NewStore creates an empty session store backed by storage.
func NewStore(storage Storage, clk clock.Clock, opts ...Option) *Store {
	s := &Store{storage: storage, clock: clk}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetToken stores token with an expiry of now+expiresIn and persists both.
// Persistence happens first; on failure the in-memory session is unchanged.
func (s *Store) SetToken(ctx context.Context, token string, expiresIn time.Duration) error {
	if token == "" {
		return fmt.Errorf("set token: empty token")
	}
	expiresAt := time.UnixMilli(s.clock.Now().Add(expiresIn).UnixMilli())

	err := s.storage.SetAll(ctx, map[string]string{
		KeyToken:           token,
		KeyTokenExpiration: strconv.FormatInt(expiresAt.UnixMilli(), 10),
	})
	if err != nil {
		return fmt.Errorf("set token: persist: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.expiresAt = expiresAt
	s.mu.Unlock()

	s.metrics.SetSessionActive(true)
	return nil
}

// Clear drops the session from memory and durable storage. Memory is
// cleared even when storage fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.expiresAt = time.Time{}
	s.mu.Unlock()

	s.metrics.SetSessionActive(false)

	if err := s.storage.Delete(ctx, KeyToken, KeyTokenExpiration); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Token returns the held token, expired or not.
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// ActiveToken returns the token only while it has not expired.
func (s *Store) ActiveToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiredLocked(s.clock.Now()) {
		return "", false
	}
	return s.token, true
}

// ExpiresAt returns the absolute expiry, or the zero time with no session.
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Snapshot returns a copy of the current session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{Token: s.token, ExpiresAt: s.expiresAt}
}

// IsExpired is true when no token is held or now is at or past the expiry.
func (s *Store) IsExpired(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiredLocked(now)
}

// Remaining returns the time left before expiry, or 0 when expired.
func (s *Store) Remaining(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiredLocked(now) {
		return 0
	}
	return s.expiresAt.Sub(now)
}

func (s *Store) expiredLocked(now time.Time) bool {
	return s.token == "" || !now.Before(s.expiresAt)
}

// Restore rehydrates the session from durable storage. It reports whether a
// live session was loaded. Missing, malformed or expired values are deleted
// and leave the store empty.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	token, hasToken, err := s.storage.Get(ctx, KeyToken)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	rawExp, hasExp, err := s.storage.Get(ctx, KeyTokenExpiration)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}

	if !hasToken && !hasExp {
		return false, nil
	}

	expMillis, parseErr := strconv.ParseInt(rawExp, 10, 64)
	expiresAt := time.UnixMilli(expMillis)
	if !hasToken || token == "" || !hasExp || parseErr != nil || !s.clock.Now().Before(expiresAt) {
		if err := s.Clear(ctx); err != nil {
			return false, fmt.Errorf("restore session: discard stale: %w", err)
		}
		return false, nil
	}

	s.mu.Lock()
	s.token = token
	s.expiresAt = expiresAt
	s.mu.Unlock()

	s.metrics.SetSessionActive(true)
	return true, nil
}

// ActiveTokens adapts a Store to remote.TokenSource, yielding only
// unexpired tokens.
type ActiveTokens struct {
	Store *Store
}

// Token implements remote.TokenSource.
func (a ActiveTokens) Token() (string, bool) {
	return a.Store.ActiveToken()
}
