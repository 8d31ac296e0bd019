package tag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelayPositive(t *testing.T) {
	got := ZERO.Delay(10 * time.Millisecond)
	assert.Equal(t, Tag{Offset: 10 * time.Millisecond, Microstep: 0}, got)
}

func TestDelayZeroIncrementsMicrostep(t *testing.T) {
	got := ZERO.Delay(0)
	assert.Equal(t, Tag{Offset: 0, Microstep: 1}, got)

	got2 := got.Delay(0)
	assert.Equal(t, Tag{Offset: 0, Microstep: 2}, got2)
}

func TestOrderingLexicographic(t *testing.T) {
	a := Tag{Offset: 5 * time.Millisecond, Microstep: 9}
	b := Tag{Offset: 5 * time.Millisecond, Microstep: 10}
	c := Tag{Offset: 6 * time.Millisecond, Microstep: 0}

	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.True(t, NEVER.Before(a))
	assert.True(t, c.Before(FOREVER))
}

func TestZeroDecrementIsNever(t *testing.T) {
	assert.Equal(t, NEVER, ZERO.Decrement())
	assert.True(t, ZERO.Decrement().Before(ZERO))
}

func TestDecrementThenIncrementRoundTrips(t *testing.T) {
	start := Tag{Offset: 3 * time.Millisecond, Microstep: 2}
	assert.Equal(t, Tag{Offset: 3 * time.Millisecond, Microstep: 1}, start.Decrement())
	assert.Equal(t, start, start.Decrement().Delay(0))
}

func TestPreInversesDelayForPositiveDelay(t *testing.T) {
	upstream := Tag{Offset: 5 * time.Millisecond, Microstep: 3}
	downstream := upstream.Delay(10 * time.Millisecond)
	assert.Equal(t, Tag{Offset: 15 * time.Millisecond, Microstep: 0}, downstream)

	// pre() must return an upstream bound that is >= the tag that actually
	// produced downstream, at the same offset.
	preBound := downstream.Pre(10 * time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, preBound.Offset)
	assert.True(t, upstream.Compare(preBound) <= 0)
}

func TestWallClock(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := Tag{Offset: 2 * time.Second}.WallClock(start)
	assert.Equal(t, start.Add(2*time.Second), got)
}

func TestCompareEqual(t *testing.T) {
	a := Tag{Offset: time.Second, Microstep: 4}
	b := Tag{Offset: time.Second, Microstep: 4}
	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Compare(b))
}
