package ratelimit

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestAllow_BurstThenRefill(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewPerMinute(6, 2, clock)

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"), "burst exhausted")
	assert.True(t, l.Allow("5.6.7.8"), "keys are independent")

	clock.Advance(10 * time.Second)
	assert.True(t, l.Allow("1.2.3.4"), "one token refilled")
	assert.False(t, l.Allow("1.2.3.4"))
}

func TestAllow_Disabled(t *testing.T) {
	l := NewPerMinute(0, 0, clockwork.NewFakeClock())
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("k"))
	}
}

func TestCleanup(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewPerMinute(10, 1, clock)
	l.Allow("old")
	clock.Advance(idleExpiry + time.Second)
	l.Allow("fresh")

	assert.Equal(t, 1, l.Cleanup())
	assert.Equal(t, 1, l.Size())
}
