package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerKeyBudget(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	defer rl.Close()

	assert.True(t, rl.Allow("ext-1"))
	assert.True(t, rl.Allow("ext-1"))
	assert.False(t, rl.Allow("ext-1"))
	assert.True(t, rl.Allow("ext-2"), "budgets are per key")
}

func TestRateLimiterEvictsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	defer rl.Close()

	now := time.Now()
	rl.now = func() time.Time { return now }
	assert.True(t, rl.Allow("ext-1"))
	assert.False(t, rl.Allow("ext-1"))

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 1, rl.evict())
	assert.True(t, rl.Allow("ext-1"))
}
