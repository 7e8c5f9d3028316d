package local

import (
	"context"
	"sync"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

type subscriber struct {
	ch chan *LocalMessage
}

// LocalPubSub is an in-process fan-out pub/sub. Slow subscribers lose
// messages instead of blocking publishers.
type LocalPubSub struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	bufSize     int
}

// NewPubSub creates a LocalPubSub with the given per-subscriber buffer size.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		subscribers: make(map[string][]*subscriber),
		bufSize:     bufSize,
	}
}

// Publish delivers message to every current subscriber of channel.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	// sends happen under the read lock so cancel cannot close a channel
	// mid-send
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	for _, s := range ps.subscribers[channel] {
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribe returns one channel carrying messages of all the given channels
// and a cancel function that unsubscribes and closes it.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	sub := &subscriber{ch: make(chan *LocalMessage, ps.bufSize)}

	ps.mu.Lock()
	for _, c := range channels {
		ps.subscribers[c] = append(ps.subscribers[c], sub)
	}
	ps.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			defer ps.mu.Unlock()
			for _, c := range channels {
				list := ps.subscribers[c]
				for j, s := range list {
					if s == sub {
						ps.subscribers[c] = append(list[:j], list[j+1:]...)
						break
					}
				}
				if len(ps.subscribers[c]) == 0 {
					delete(ps.subscribers, c)
				}
			}
			close(sub.ch)
		})
	}
	return sub.ch, cancel, nil
}

// Subscribers is the number of live subscriptions to channel.
func (ps *LocalPubSub) Subscribers(channel string) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[channel])
}
