// Package reward resolves reward tables and hands claimed rewards to the
// delivery channel consumed by gameplay servers.
package reward

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kasuganosora/questengine/cache"
	"github.com/kasuganosora/questengine/game/quest"
	"go.uber.org/zap"
)

// DeliveryChannel carries one Delivery per successful claim.
const DeliveryChannel = "quest:deliveries"

// Store is the persistent reward table.
type Store interface {
	LoadRewards(ctx context.Context, kind quest.Kind, bracket quest.Bracket) ([]json.RawMessage, error)
	SaveRewards(ctx context.Context, kind quest.Kind, bracket quest.Bracket, items []json.RawMessage) error
}

// Delivery is published for the gameplay server that owns the player's
// inventory.
type Delivery struct {
	PlayerID uuid.UUID         `json:"player_id"`
	Kind     quest.Kind        `json:"kind"`
	Bracket  string            `json:"bracket"`
	Items    []json.RawMessage `json:"items"`
	At       time.Time         `json:"at"`
}

// Dispenser implements quest.Dispenser.
type Dispenser struct {
	store  Store
	cache  cache.Cache
	pubsub cache.PubSub
	ttl    time.Duration
	clock  clockwork.Clock
	logger *zap.Logger
}

var _ quest.Dispenser = (*Dispenser)(nil)

// New builds a Dispenser. c may be nil to disable caching.
func New(store Store, c cache.Cache, ps cache.PubSub, ttl time.Duration, logger *zap.Logger) *Dispenser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispenser{
		store:  store,
		cache:  c,
		pubsub: ps,
		ttl:    ttl,
		clock:  clockwork.NewRealClock(),
		logger: logger,
	}
}

// WithClock sets the clock stamped on deliveries.
func (d *Dispenser) WithClock(clock clockwork.Clock) *Dispenser {
	d.clock = clock
	return d
}

func cacheKey(kind quest.Kind, bracket quest.Bracket) string {
	return fmt.Sprintf("quest:rewards:%s:%s", kind, bracket.Label())
}

// Rewards returns the reward table of (kind, bracket), served from the
// cache when possible.
func (d *Dispenser) Rewards(ctx context.Context, kind quest.Kind, bracket quest.Bracket) ([]json.RawMessage, error) {
	key := cacheKey(kind, bracket)
	if d.cache != nil {
		raw, err := d.cache.Get(ctx, key)
		switch {
		case err == nil:
			var items []json.RawMessage
			if jerr := json.Unmarshal([]byte(raw), &items); jerr == nil {
				return items, nil
			}
			d.logger.Warn("reward cache entry corrupt", zap.String("key", key))
		case !cache.IsNotFound(err):
			d.logger.Warn("reward cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	items, err := d.store.LoadRewards(ctx, kind, bracket)
	if err != nil {
		return nil, err
	}
	if d.cache != nil {
		b, _ := json.Marshal(items)
		if err := d.cache.Set(ctx, key, string(b), d.ttl); err != nil {
			d.logger.Warn("reward cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return items, nil
}

// SetRewards replaces a reward table and drops its cached copy.
func (d *Dispenser) SetRewards(ctx context.Context, kind quest.Kind, bracket quest.Bracket, items []json.RawMessage) error {
	if err := d.store.SaveRewards(ctx, kind, bracket, items); err != nil {
		return err
	}
	if d.cache != nil {
		if err := d.cache.Del(ctx, cacheKey(kind, bracket)); err != nil {
			d.logger.Warn("reward cache invalidate failed", zap.String("kind", kind.String()),
				zap.String("bracket", bracket.Label()), zap.Error(err))
		}
	}
	return nil
}

// Dispense resolves the table and publishes a Delivery. An empty table is
// not an error; the claim goes through with nothing delivered.
func (d *Dispenser) Dispense(ctx context.Context, playerID uuid.UUID, kind quest.Kind, bracket quest.Bracket) ([]json.RawMessage, error) {
	items, err := d.Rewards(ctx, kind, bracket)
	if err != nil {
		return nil, fmt.Errorf("dispense %s/%s: %w", kind, bracket, err)
	}
	if len(items) == 0 {
		d.logger.Warn("reward table empty",
			zap.String("player_id", playerID.String()),
			zap.String("kind", kind.String()),
			zap.String("bracket", bracket.Label()))
		return []json.RawMessage{}, nil
	}
	if d.pubsub != nil {
		b, err := json.Marshal(Delivery{
			PlayerID: playerID,
			Kind:     kind,
			Bracket:  bracket.Label(),
			Items:    items,
			At:       d.clock.Now(),
		})
		if err != nil {
			return nil, err
		}
		if err := d.pubsub.Publish(ctx, DeliveryChannel, string(b)); err != nil {
			return nil, fmt.Errorf("publish delivery: %w", err)
		}
	}
	return items, nil
}
