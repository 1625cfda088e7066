package debounce

import (
	"testing"
	"time"

	"github.com/kasbot/kasbot-server/errcode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func TestAllow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	d, err := New(5*time.Second, map[string]time.Duration{"tip": time.Minute, "version": 0}, 0, clock.Now)
	require.NoError(t, err)

	ok, _ := d.Allow("alice", "stats")
	assert.True(t, ok)

	clock.now = clock.now.Add(2 * time.Second)
	ok, wait := d.Allow("alice", "stats")
	assert.False(t, ok)
	assert.Equal(t, 3*time.Second, wait)

	// Other users and other commands are independent.
	ok, _ = d.Allow("bob", "stats")
	assert.True(t, ok)
	ok, _ = d.Allow("alice", "price")
	assert.True(t, ok)

	clock.now = clock.now.Add(3 * time.Second)
	ok, _ = d.Allow("alice", "stats")
	assert.True(t, ok)

	ok, _ = d.Allow("alice", "tip")
	assert.True(t, ok)
	clock.now = clock.now.Add(30 * time.Second)
	ok, wait = d.Allow("alice", "tip")
	assert.False(t, ok)
	assert.Equal(t, 30*time.Second, wait)

	for i := 0; i < 3; i++ {
		ok, _ = d.Allow("alice", "version")
		assert.True(t, ok)
	}
}

func TestRejectedCallDoesNotExtendWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	d, err := New(10*time.Second, nil, 0, clock.Now)
	require.NoError(t, err)

	ok, _ := d.Allow("u", "c")
	require.True(t, ok)
	clock.now = clock.now.Add(9 * time.Second)
	ok, _ = d.Allow("u", "c")
	require.False(t, ok)
	clock.now = clock.now.Add(time.Second)
	ok, _ = d.Allow("u", "c")
	assert.True(t, ok)
}

func TestResetAndCapacity(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	d, err := New(time.Minute, nil, 2, clock.Now)
	require.NoError(t, err)

	d.Allow("a", "c")
	d.Reset("a", "c")
	ok, _ := d.Allow("a", "c")
	assert.True(t, ok)

	d.Allow("b", "c")
	d.Allow("c", "c")
	assert.Equal(t, 2, d.Len())
	// "a" was evicted.
	ok, _ = d.Allow("a", "c")
	assert.True(t, ok)
}

func TestNewRejectsNegativeIntervals(t *testing.T) {
	_, err := New(-time.Second, nil, 0, nil)
	assert.ErrorIs(t, err, errcode.ErrConfiguration)

	_, err = New(time.Second, map[string]time.Duration{"tip": -1}, 0, nil)
	assert.ErrorIs(t, err, errcode.ErrConfiguration)
}
