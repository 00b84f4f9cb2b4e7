package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Fib3301/HeadHunterAssistant/internal/capability"
	"github.com/Fib3301/HeadHunterAssistant/internal/domain"
)

// BundleLoader returns the capability bundle for a new session.
type BundleLoader func() (*capability.Bundle, error)

// CredentialResolver returns usable credentials for an extension user.
type CredentialResolver func(ctx context.Context, extensionUserID string) (*domain.Credentials, error)

// Session is one conversation. Turns on the same session are serialized with
// Lock/Unlock; the accessors are safe for concurrent use.
type Session struct {
	id        string
	createdAt time.Time
	limit     int
	now       func() time.Time

	lastActivity atomic.Int64

	turn sync.Mutex

	mu      sync.Mutex
	owner   string
	history []domain.Message
	bundle  *capability.Bundle
	creds   *domain.Credentials
}

func newSession(id string, limit int, systemPrompt string, now func() time.Time) *Session {
	s := &Session{
		id:        id,
		createdAt: now(),
		limit:     limit,
		now:       now,
	}
	if systemPrompt != "" {
		s.history = []domain.Message{{Role: domain.RoleSystem, Content: systemPrompt}}
	}
	s.touch()
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// LastActivity returns the time of the last access.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Session) touch() {
	s.lastActivity.Store(s.now().UnixNano())
}

func (s *Session) alive(timeout time.Duration) bool {
	return s.now().Sub(s.LastActivity()) < timeout
}

// Lock acquires the per-session turn lock.
func (s *Session) Lock() { s.turn.Lock() }

// Unlock releases the per-session turn lock.
func (s *Session) Unlock() { s.turn.Unlock() }

// Owner returns the extension user the session is bound to, if any.
func (s *Session) Owner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Append adds a turn, trimming history to the limit while keeping a leading
// system turn.
func (s *Session) Append(role, content string) {
	s.mu.Lock()
	s.history = append(s.history, domain.Message{Role: role, Content: content})
	s.history = trim(s.history, s.limit)
	s.mu.Unlock()

	s.touch()
}

func trim(history []domain.Message, limit int) []domain.Message {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	if history[0].Role == domain.RoleSystem {
		kept := make([]domain.Message, 0, limit)
		kept = append(kept, history[0])
		return append(kept, history[len(history)-(limit-1):]...)
	}
	return append([]domain.Message(nil), history[len(history)-limit:]...)
}

// History returns a copy of the chat history.
func (s *Session) History() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.history...)
}

// Bundle returns the loaded capability bundle, or nil.
func (s *Session) Bundle() *capability.Bundle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bundle
}

// Credentials returns a copy of the resolved credentials, or nil.
func (s *Session) Credentials() *domain.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.creds == nil {
		return nil
	}
	c := *s.creds
	return &c
}

// EnsureInitialized loads whatever of the bundle and credentials is missing.
// It is a no-op once both are present.
func (s *Session) EnsureInitialized(ctx context.Context, extensionUserID string, loadBundle BundleLoader, resolve CredentialResolver) error {
	s.mu.Lock()
	if s.owner != "" && s.owner != extensionUserID {
		s.mu.Unlock()
		return domain.Validationf("session belongs to another user")
	}
	s.owner = extensionUserID
	needBundle := s.bundle == nil
	needCreds := s.creds == nil
	s.mu.Unlock()

	if needBundle {
		b, err := loadBundle()
		if err != nil {
			return fmt.Errorf("load capability bundle: %w", err)
		}
		s.mu.Lock()
		s.bundle = b
		s.mu.Unlock()
	}

	if needCreds {
		creds, err := resolve(ctx, extensionUserID)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.creds = creds
		s.mu.Unlock()
	}

	return nil
}

// InvalidateCredentials drops resolved credentials so the next turn resolves
// them again.
func (s *Session) InvalidateCredentials() {
	s.mu.Lock()
	s.creds = nil
	s.mu.Unlock()
}
