package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newOracleBreaker(opts ...Option) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return New("fingerprint-oracle", opts...), clock
}

func TestBreakerStartsClosed(t *testing.T) {
	b, _ := newOracleBreaker()
	assert.Equal(t, "fingerprint-oracle", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
	assert.True(t, b.Allow())
}

func TestBreakerOpensOnConsecutiveFailures(t *testing.T) {
	b, _ := newOracleBreaker(WithFailureThreshold(3))

	for i := range 2 {
		useFallback, change := b.RecordFailure()
		assert.False(t, useFallback, "failure %d", i+1)
		assert.False(t, change.Opened)
	}
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
	assert.Equal(t, "open", b.State().String())

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.False(t, change.Opened, "already open")
}

func TestBreakerSuccessInterruptsFailureStreak(t *testing.T) {
	b, _ := newOracleBreaker(WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreakerAdmitsTrialAfterCooldown(t *testing.T) {
	b, clock := newOracleBreaker(WithFailureThreshold(1), WithCooldown(5*time.Second))

	b.RecordFailure()
	require.True(t, b.IsOpen())
	assert.False(t, b.Allow())

	clock.Advance(4 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(time.Second)
	assert.True(t, b.Allow(), "trial call admitted once cooldown elapsed")

	// A failed trial call restarts the cooldown.
	b.RecordFailure()
	assert.False(t, b.Allow())
	clock.Advance(5 * time.Second)
	assert.True(t, b.Allow())
}

func TestBreakerClosesAfterSuccessfulTrials(t *testing.T) {
	b, _ := newOracleBreaker(WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()

	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary)
	assert.False(t, change.Closed)
	assert.True(t, b.IsOpen())

	// A failure between trial calls resets the success streak.
	b.RecordFailure()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.True(t, b.Allow())
}

func TestBreakerReset(t *testing.T) {
	b, _ := newOracleBreaker(WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}
