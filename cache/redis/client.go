package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int
}

func dial(cfg Config) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisCache implements the KV cache on Redis.
type RedisCache struct {
	client *goredis.Client
}

// NewCache connects and pings Redis.
func NewCache(cfg Config) (*RedisCache, error) {
	client, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: client}, nil
}

// NewCacheFromClient wraps an existing client.
func NewCacheFromClient(client *goredis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ErrNotFound
	}
	return v, err
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *RedisCache) Close() error { return r.client.Close() }

// RedisMessage is the message type returned by RedisPubSub.Subscribe.
type RedisMessage struct {
	Channel string
	Payload string
}

// RedisPubSub publishes and subscribes through Redis channels so every
// service instance sees quest notifications.
type RedisPubSub struct {
	client *goredis.Client
}

// NewPubSub connects and pings Redis.
func NewPubSub(cfg Config) (*RedisPubSub, error) {
	client, err := dial(cfg)
	if err != nil {
		return nil, err
	}
	return &RedisPubSub{client: client}, nil
}

func (r *RedisPubSub) Publish(ctx context.Context, channel, message string) error {
	return r.client.Publish(ctx, channel, message).Err()
}

func (r *RedisPubSub) Subscribe(ctx context.Context, channels ...string) (<-chan *RedisMessage, func(), error) {
	ps := r.client.Subscribe(ctx, channels...)
	// wait for the subscription confirmation so no message published right
	// after Subscribe returns is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("redis subscribe: %w", err)
	}
	ch := make(chan *RedisMessage, 256)
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			ch <- &RedisMessage{Channel: msg.Channel, Payload: msg.Payload}
		}
	}()
	return ch, func() { _ = ps.Close() }, nil
}
