package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLRU[T any](size int, ttl time.Duration) (*LRUCache[T], *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC)}
	c := NewLRUCache[T](size, ttl)
	c.now = clk.now
	return c, clk
}

func TestLRUCache_ExpiresAfterTTL(t *testing.T) {
	c, clk := newTestLRU[string](10, time.Minute)
	c.Set("a", "1")

	clk.advance(59 * time.Second)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	// Reads do not extend the lifetime.
	clk.advance(time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLRU[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b should be evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestLRUCache_CleanExpired(t *testing.T) {
	c, clk := newTestLRU[int](10, time.Minute)
	c.Set("a", 1)
	clk.advance(30 * time.Second)
	c.Set("b", 2)
	clk.advance(45 * time.Second)

	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 1, c.Size())

	clk.advance(time.Minute)
	assert.Equal(t, 1, NewJanitor(nil, c).Sweep())
	assert.Equal(t, 0, c.Size())
}

func TestJanitor_StopsOnCancel(t *testing.T) {
	c, _ := newTestLRU[int](10, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewJanitor(nil, c).Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestSessions_IssueLookupRevoke(t *testing.T) {
	s := NewSessions(10, time.Hour)
	sess := s.Issue("10.0.0.1")

	_, err := uuid.Parse(sess.Token)
	require.NoError(t, err)

	got, ok := s.Lookup(sess.Token)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.1", got.ClientIP)

	s.Revoke(sess.Token)
	_, ok = s.Lookup(sess.Token)
	assert.False(t, ok)

	_, ok = s.Lookup("")
	assert.False(t, ok)
	s.Revoke("unknown")
}

func TestSessions_Bounded(t *testing.T) {
	s := NewSessions(2, time.Hour)
	first := s.Issue("a")
	s.Issue("b")
	s.Issue("c")

	assert.Equal(t, 2, s.Len())
	_, ok := s.Lookup(first.Token)
	assert.False(t, ok)
}
