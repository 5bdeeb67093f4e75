package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestGetSetTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("calendar.listEvents|primary", []string{"a", "b"}, 30*time.Second)

	v, ok := c.Get("calendar.listEvents|primary")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, v)

	// Just inside the TTL the value is still served.
	clock.Advance(29 * time.Second)
	_, ok = c.Get("calendar.listEvents|primary")
	assert.True(t, ok)

	// At exactly the TTL boundary the entry is logically absent.
	clock.Advance(time.Second)
	_, ok = c.Get("calendar.listEvents|primary")
	assert.False(t, ok)

	// The expired entry was evicted, not just hidden.
	assert.Equal(t, 0, c.Len())
}

func TestMissingKey(t *testing.T) {
	c := New()
	_, ok := c.Get("nope")
	assert.False(t, ok)
}

func TestPinnedEntryNeverExpires(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("calendar.id|writing goals", "cal_123", 0)
	clock.Advance(365 * 24 * time.Hour)

	v, ok := c.Get("calendar.id|writing goals")
	require.True(t, ok)
	assert.Equal(t, "cal_123", v)

	c.Invalidate("calendar.id")
	_, ok = c.Get("calendar.id|writing goals")
	assert.False(t, ok)
}

func TestInvalidateSubstring(t *testing.T) {
	c := New()
	c.Set("calendar.listEvents|primary|a", 1, time.Minute)
	c.Set("calendar.listEvents|primary|b", 2, time.Minute)
	c.Set("tasks.listTasks|inbox", 3, time.Minute)

	c.Invalidate("calendar.listEvents")

	_, ok := c.Get("calendar.listEvents|primary|a")
	assert.False(t, ok)
	_, ok = c.Get("calendar.listEvents|primary|b")
	assert.False(t, ok)
	_, ok = c.Get("tasks.listTasks|inbox")
	assert.True(t, ok)
}

func TestInvalidateAll(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)

	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
}

func TestSweepOnWrite(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithSweepThreshold(10))

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("short|%d", i), i, time.Second)
	}
	require.Equal(t, 10, c.Len())

	// All short entries are now expired; the next write is over the
	// threshold and must sweep them out.
	clock.Advance(2 * time.Second)
	c.Set("fresh", "v", time.Minute)

	assert.Equal(t, 1, c.Len())
	v, ok := c.Get("fresh")
	require.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestOverwriteResetsTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("k", "old", 10*time.Second)
	clock.Advance(9 * time.Second)
	c.Set("k", "new", 10*time.Second)
	clock.Advance(9 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "calendar.listCalendars", Key("calendar.listCalendars"))
	assert.Equal(t,
		"calendar.listEvents|primary|2026-01-01T00:00:00Z|2026-01-31T00:00:00Z",
		Key("calendar.listEvents", "primary", "2026-01-01T00:00:00Z", "2026-01-31T00:00:00Z"))
}
