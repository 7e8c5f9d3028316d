// Package notify forwards quest signals to pub/sub channels: one channel per
// player and one announcement channel for reset broadcasts.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/kasuganosora/questengine/cache"
	"github.com/kasuganosora/questengine/game/quest"
	"github.com/kasuganosora/questengine/plugin/hook"
	"go.uber.org/zap"
)

// AnnounceChannel carries server-wide reset announcements.
const AnnounceChannel = "quest:announce"

const hookName = "notify"

// Message types.
const (
	TypeAssigned  = "quest_assigned"
	TypeRerolled  = "quest_rerolled"
	TypeCompleted = "quest_completed"
	TypeRewards   = "rewards_dispensed"
	TypeReset     = "quest_reset"
	TypeBroadcast = "reset_broadcast"
)

// PlayerChannel is the channel of one player's notifications.
func PlayerChannel(id uuid.UUID) string {
	return "quest:player:" + id.String()
}

// Envelope is the JSON payload published on every channel.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Bridge publishes hook payloads.
type Bridge struct {
	pubsub cache.PubSub
	logger *zap.Logger
}

func NewBridge(ps cache.PubSub, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{pubsub: ps, logger: logger}
}

// Register attaches the bridge to hc after any other handler of the same
// events (priority 100).
func (b *Bridge) Register(hc *hook.HookCenter) {
	hc.Register(hook.OnQuestAssigned, 100, hookName, b.handle)
	hc.Register(hook.OnQuestRerolled, 100, hookName, b.handle)
	hc.Register(hook.OnQuestComplete, 100, hookName, b.handle)
	hc.Register(hook.OnRewardsDispense, 100, hookName, b.handle)
	hc.Register(hook.OnQuestReset, 100, hookName, b.handle)
	hc.Register(hook.OnResetBroadcast, 100, hookName, b.handle)
}

// Unregister detaches the bridge from hc.
func (b *Bridge) Unregister(hc *hook.HookCenter) {
	hc.UnregisterAll(hookName)
}

func (b *Bridge) handle(ctx context.Context, event string, data any) (any, error) {
	channel, typ, err := route(event, data)
	if err != nil {
		return data, err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return data, err
	}
	payload, err := json.Marshal(Envelope{Type: typ, Data: raw})
	if err != nil {
		return data, err
	}
	if err := b.pubsub.Publish(ctx, channel, string(payload)); err != nil {
		b.logger.Warn("notify publish failed",
			zap.String("channel", channel), zap.String("type", typ), zap.Error(err))
	}
	return data, nil
}

func route(event string, data any) (channel, typ string, err error) {
	switch v := data.(type) {
	case quest.AssignedEvent:
		if event == hook.OnQuestRerolled {
			return PlayerChannel(v.PlayerID), TypeRerolled, nil
		}
		return PlayerChannel(v.PlayerID), TypeAssigned, nil
	case quest.CompletedEvent:
		return PlayerChannel(v.PlayerID), TypeCompleted, nil
	case quest.RewardsEvent:
		return PlayerChannel(v.PlayerID), TypeRewards, nil
	case quest.ResetEvent:
		return PlayerChannel(v.PlayerID), TypeReset, nil
	case quest.BroadcastEvent:
		return AnnounceChannel, TypeBroadcast, nil
	}
	return "", "", fmt.Errorf("notify: unexpected payload %T for %s", data, event)
}
