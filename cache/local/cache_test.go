package local

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*LocalCache, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClock()
	c, err := NewCache(Config{GCInterval: time.Minute, Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, clock
}

func TestGetSet(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "key1", "value1", 0))
	v, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", v)
}

func TestGetMissing(t *testing.T) {
	c, _ := newTestCache(t)
	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTTLExpiry(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "ttl_key", "val", 10*time.Second))

	clock.Advance(9 * time.Second)
	v, err := c.Get(ctx, "ttl_key")
	require.NoError(t, err)
	assert.Equal(t, "val", v)

	clock.Advance(time.Second)
	_, err = c.Get(ctx, "ttl_key")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDel(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	_ = c.Set(ctx, "a", "1", 0)
	_ = c.Set(ctx, "b", "2", 0)
	require.NoError(t, c.Del(ctx, "a", "b", "never"))
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetNX(t *testing.T) {
	c, clock := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "quest:reset:DAILY:1", "x", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "quest:reset:DAILY:1", "y", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(time.Hour)
	ok, _ = c.SetNX(ctx, "quest:reset:DAILY:1", "z", time.Hour)
	assert.True(t, ok, "expired keys can be claimed again")
}

func TestSetNX_SingleWinner(t *testing.T) {
	c, _ := newTestCache(t)
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := c.SetNX(context.Background(), "k", "v", 0); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestCloseTwice(t *testing.T) {
	c, _ := newTestCache(t)
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
