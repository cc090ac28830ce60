// Package session holds the bearer token for the configured API origin.
//
// The Store is the single source of truth for "am I signed in?". It never
// inspects the token: whether the server still accepts it is decided by a
// probe request (see package guard).
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/me/gestion/internal/logging"
	"github.com/me/gestion/pkg/model"
)

// TokenKey is the storage key the bearer token lives under.
const TokenKey = "token"

// ErrEmptyToken is returned by Set when the token is blank.
var ErrEmptyToken = errors.New("session: empty token")

// Entry is one stored value.
type Entry struct {
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Backend is durable key/value storage scoped to one API origin.
// Delete of a missing key must not return an error.
type Backend interface {
	Origin() string
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
	Delete(ctx context.Context, key string) error
}

// Store wraps a Backend with token semantics.
type Store struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Store over the given backend.
func New(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{
		backend: backend,
		logger:  logger.With("component", "session", "origin", backend.Origin()),
		now:     time.Now,
	}
}

// Get returns the stored token. A backend read failure is logged and
// reported as "no token".
func (s *Store) Get(ctx context.Context) (string, bool) {
	e, ok, err := s.backend.Get(ctx, TokenKey)
	if err != nil {
		s.logger.Warn("read token failed", "error", err)
		return "", false
	}
	if !ok || e.Value == "" {
		return "", false
	}
	return e.Value, true
}

// Set persists token, replacing any previous one.
func (s *Store) Set(ctx context.Context, token string) error {
	token = normalizeToken(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.backend.Set(ctx, TokenKey, Entry{Value: token, UpdatedAt: s.now().UTC()}); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	s.logger.Debug("token saved")
	return nil
}

// Clear removes the stored token. Clearing an empty store is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, TokenKey); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}
	s.logger.Debug("token cleared")
	return nil
}

// Info returns the stored session with its save time.
func (s *Store) Info(ctx context.Context) (model.Session, bool) {
	e, ok, err := s.backend.Get(ctx, TokenKey)
	if err != nil {
		s.logger.Warn("read token failed", "error", err)
		return model.Session{}, false
	}
	if !ok || e.Value == "" {
		return model.Session{}, false
	}
	return model.Session{Origin: s.backend.Origin(), Token: e.Value, SavedAt: e.UpdatedAt}, true
}

// normalizeToken trims whitespace and a leading "Bearer " scheme.
func normalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}
