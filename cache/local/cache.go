package local

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
	// Clock defaults to the real clock.
	Clock clockwork.Clock
}

type entry struct {
	data     string
	expireAt time.Time // zero means no expiry
}

// LocalCache is an in-process KV cache with per-key TTL.
type LocalCache struct {
	mu    sync.Mutex
	kv    map[string]entry
	clock clockwork.Clock

	stopOnce sync.Once
	stopGC   chan struct{}
}

// NewCache creates a LocalCache and starts its expiry sweeper.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	c := &LocalCache{
		kv:     make(map[string]entry),
		clock:  clock,
		stopGC: make(chan struct{}),
	}
	go c.runGC(interval)
	return c, nil
}

// Close stops the sweeper. It is safe to call more than once.
func (c *LocalCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopGC) })
	return nil
}

func (c *LocalCache) runGC(interval time.Duration) {
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.Chan():
			c.mu.Lock()
			now := c.clock.Now()
			for k, e := range c.kv {
				if e.expiredAt(now) {
					delete(c.kv, k)
				}
			}
			c.mu.Unlock()
		case <-c.stopGC:
			return
		}
	}
}

func (e entry) expiredAt(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// live returns the entry for key if present and unexpired. c.mu must be held.
func (c *LocalCache) live(key string) (entry, bool) {
	e, ok := c.kv[key]
	if !ok {
		return entry{}, false
	}
	if e.expiredAt(c.clock.Now()) {
		delete(c.kv, key)
		return entry{}, false
	}
	return e, true
}

func (c *LocalCache) newEntry(value string, ttl time.Duration) entry {
	e := entry{data: value}
	if ttl > 0 {
		e.expireAt = c.clock.Now().Add(ttl)
	}
	return e
}

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.live(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.data, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	c.kv[key] = c.newEntry(value, ttl)
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.kv, k)
	}
	c.mu.Unlock()
	return nil
}

// SetNX stores value only if key is absent or expired.
func (c *LocalCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.live(key); ok {
		return false, nil
	}
	c.kv[key] = c.newEntry(value, ttl)
	return true, nil
}
