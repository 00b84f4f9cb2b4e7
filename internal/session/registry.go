// Package session keeps conversation state in memory.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Options configures a Registry.
type Options struct {
	Timeout      time.Duration
	HistoryLimit int
	SystemPrompt string
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Registry holds live sessions keyed by id. Expiry is sliding: every
// successful Get extends a session's life.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	timeout      time.Duration
	historyLimit int
	systemPrompt string
	now          func() time.Time
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts Options) *Registry {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = 10
	}
	return &Registry{
		sessions:     make(map[string]*Session),
		timeout:      timeout,
		historyLimit: limit,
		systemPrompt: opts.SystemPrompt,
		now:          now,
	}
}

// Create stores a new empty session and returns its id.
func (r *Registry) Create() string {
	id := uuid.NewString()
	s := newSession(id, r.historyLimit, r.systemPrompt, r.now)

	r.mu.Lock()
	r.sessions[id] = s
	r.mu.Unlock()

	slog.Debug("Session created", "session_id", id)
	return id
}

// Get returns the session if it is alive and refreshes its last activity.
// Expired entries are reported absent even before the sweeper removes them.
func (r *Registry) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok || !s.alive(r.timeout) {
		return nil, false
	}
	s.touch()
	return s, true
}

// Destroy removes a session. Missing ids are ignored.
func (r *Registry) Destroy(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of resident sessions, expired or not.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if !s.alive(r.timeout) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep every interval until ctx is done.
func (r *Registry) StartSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval, "timeout", r.timeout)

		for {
			select {
			case <-ticker.C:
				if n := r.Sweep(); n > 0 {
					slog.Info("Session sweeper evicted expired sessions", "count", n, "resident", r.Len())
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
