package hook

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrInterrupt stops the remaining handlers of one Trigger call.
var ErrInterrupt = errors.New("hook interrupted")

// HookFn handles one event. Return (data, nil) to continue or
// (data, ErrInterrupt) to stop the chain.
type HookFn func(ctx context.Context, event string, data any) (any, error)

type hookEntry struct {
	priority int
	seq      int
	fn       HookFn
	name     string
}

// HookCenter dispatches quest signals to registered handlers in priority order.
type HookCenter struct {
	mu     sync.RWMutex
	hooks  map[string][]*hookEntry
	seq    int
	logger *zap.Logger
}

// NewHookCenter creates an empty HookCenter. A nil logger discards handler
// failures.
func NewHookCenter(logger *zap.Logger) *HookCenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HookCenter{hooks: make(map[string][]*hookEntry), logger: logger}
}

// Register adds fn for event. Lower priority runs first; equal priorities run
// in registration order. name is the key for Unregister.
func (hc *HookCenter) Register(event string, priority int, name string, fn HookFn) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.seq++
	entries := append(hc.hooks[event], &hookEntry{priority: priority, seq: hc.seq, fn: fn, name: name})
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority < entries[j].priority
		}
		return entries[i].seq < entries[j].seq
	})
	hc.hooks[event] = entries
}

// Unregister removes every handler named name from event.
func (hc *HookCenter) Unregister(event, name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.hooks[event] = without(hc.hooks[event], name)
}

// UnregisterAll removes handlers named name from all events.
func (hc *HookCenter) UnregisterAll(name string) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	for event, entries := range hc.hooks {
		hc.hooks[event] = without(entries, name)
	}
}

func without(entries []*hookEntry, name string) []*hookEntry {
	n := 0
	for _, e := range entries {
		if e.name != name {
			entries[n] = e
			n++
		}
	}
	return entries[:n]
}

// Count is the number of handlers registered for event.
func (hc *HookCenter) Count(event string) int {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return len(hc.hooks[event])
}

// Trigger runs the handlers for event in order, threading data through them.
// A handler that panics or fails is logged and skipped; ErrInterrupt stops
// the chain and is returned.
func (hc *HookCenter) Trigger(ctx context.Context, event string, data any) (any, error) {
	hc.mu.RLock()
	entries := make([]*hookEntry, len(hc.hooks[event]))
	copy(entries, hc.hooks[event])
	hc.mu.RUnlock()

	for _, e := range entries {
		out, err := hc.call(ctx, e, event, data)
		if errors.Is(err, ErrInterrupt) {
			return out, err
		}
		if err != nil {
			hc.logger.Warn("hook handler failed",
				zap.String("event", event), zap.String("hook", e.name), zap.Error(err))
			continue
		}
		data = out
	}
	return data, nil
}

func (hc *HookCenter) call(ctx context.Context, e *hookEntry, event string, data any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = data, fmt.Errorf("panic: %v", r)
		}
	}()
	return e.fn(ctx, event, data)
}

// Quest signal names.
const (
	OnQuestAssigned   = "on_quest_assigned"
	OnQuestRerolled   = "on_quest_rerolled"
	OnQuestComplete   = "on_quest_complete"
	OnRewardsDispense = "on_rewards_dispensed"
	OnQuestReset      = "on_quest_reset"
	OnResetBroadcast  = "on_reset_broadcast"
	OnPlayerLogin     = "on_player_login"
	OnPlayerLogout    = "on_player_logout"
)
