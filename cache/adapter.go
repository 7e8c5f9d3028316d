package cache

import (
	"context"
	"errors"
	"time"

	"github.com/kasuganosora/questengine/cache/local"
	cacheredis "github.com/kasuganosora/questengine/cache/redis"
)

// Cache is the KV surface the service needs: reward table lookups and
// cross-instance reset announcement claims.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Close() error
}

// Message is a received pub/sub message.
type Message struct {
	Channel string
	Payload string
}

// PubSub defines channel publish/subscribe operations.
type PubSub interface {
	Publish(ctx context.Context, channel, message string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error)
}

// CacheConfig holds configuration for both Redis and the in-process cache.
type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// IsNotFound reports whether err is a cache miss from either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}

func (cfg CacheConfig) redis() cacheredis.Config {
	return cacheredis.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

// NewCache returns a Redis-backed Cache when RedisAddr is set and an
// in-process one otherwise.
func NewCache(cfg CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.NewCache(cfg.redis())
	}
	return local.NewCache(local.Config{GCInterval: cfg.LocalGCInterval})
}

// NewPubSub mirrors NewCache for pub/sub.
func NewPubSub(cfg CacheConfig) (PubSub, error) {
	if cfg.RedisAddr != "" {
		rps, err := cacheredis.NewPubSub(cfg.redis())
		if err != nil {
			return nil, err
		}
		return &redisPubSubAdapter{ps: rps}, nil
	}
	return &localPubSubAdapter{ps: local.NewPubSub(cfg.LocalPubSubBuf)}, nil
}

// relay copies backend messages into cache.Message until src closes.
func relay[T any](src <-chan T, conv func(T) *Message) <-chan *Message {
	out := make(chan *Message, cap(src))
	go func() {
		defer close(out)
		for m := range src {
			out <- conv(m)
		}
	}()
	return out
}

type localPubSubAdapter struct {
	ps *local.LocalPubSub
}

func (a *localPubSubAdapter) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a *localPubSubAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	ch, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return relay(ch, func(m *local.LocalMessage) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	}), cancel, nil
}

type redisPubSubAdapter struct {
	ps *cacheredis.RedisPubSub
}

func (a *redisPubSubAdapter) Publish(ctx context.Context, channel, message string) error {
	return a.ps.Publish(ctx, channel, message)
}

func (a *redisPubSubAdapter) Subscribe(ctx context.Context, channels ...string) (<-chan *Message, func(), error) {
	ch, cancel, err := a.ps.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, err
	}
	return relay(ch, func(m *cacheredis.RedisMessage) *Message {
		return &Message{Channel: m.Channel, Payload: m.Payload}
	}), cancel, nil
}
