package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry(clock *fakeClock) *Registry {
	return NewRegistry(Options{
		Timeout:      24 * time.Hour,
		HistoryLimit: 10,
		SystemPrompt: "you are helpful",
		Now:          clock.Now,
	})
}

func TestCreateGeneratesUniqueIDs(t *testing.T) {
	r := newTestRegistry(newFakeClock())

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := r.Create()
		require.Len(t, id, 36)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 100, r.Len())
}

func TestGetSlidingExpiry(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)
	id := r.Create()

	clock.Advance(23 * time.Hour)
	s, ok := r.Get(id)
	require.True(t, ok)
	assert.True(t, clock.Now().Equal(s.LastActivity()))

	clock.Advance(23 * time.Hour)
	_, ok = r.Get(id)
	assert.True(t, ok, "lookup should have extended the session")
}

func TestGetExpiredReturnsAbsentWhileResident(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)
	id := r.Create()

	clock.Advance(24 * time.Hour)
	_, ok := r.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len(), "entry stays resident until swept")
}

func TestGetUnknownAndEmpty(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	_, ok := r.Get("missing")
	assert.False(t, ok)
	_, ok = r.Get("")
	assert.False(t, ok)
}

func TestDestroyIsIdempotent(t *testing.T) {
	r := newTestRegistry(newFakeClock())
	id := r.Create()

	r.Destroy(id)
	r.Destroy(id)
	r.Destroy("never-existed")

	_, ok := r.Get(id)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)
	old := r.Create()
	clock.Advance(20 * time.Hour)
	fresh := r.Create()
	clock.Advance(5 * time.Hour)

	assert.Equal(t, 1, r.Sweep())
	_, ok := r.Get(old)
	assert.False(t, ok)
	_, ok = r.Get(fresh)
	assert.True(t, ok)
}

func TestStartSweeperStopsWithContext(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(clock)
	r.Create()
	clock.Advance(48 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartSweeper(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestConcurrentAccess(t *testing.T) {
	r := newTestRegistry(newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.Create()
			if s, ok := r.Get(id); ok {
				s.Append("user", "hi")
			}
			r.Sweep()
			r.Destroy(id)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, r.Len())
}
