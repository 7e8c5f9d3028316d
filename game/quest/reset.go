package quest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/kasuganosora/questengine/plugin/hook"
	"go.uber.org/zap"
)

// Claimer deduplicates reset announcements across service instances.
// SetNX in the cache layer satisfies it.
type Claimer interface {
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

// ResetScheduler applies due resets to every cached player and announces each
// boundary once.
type ResetScheduler struct {
	engine  *Engine
	claimer Claimer
	logger  *zap.Logger

	mu       sync.Mutex
	boundary [kindCount]time.Time
}

// NewResetScheduler primes the next global boundary of every kind from the
// engine clock. claimer may be nil for a single instance.
func NewResetScheduler(engine *Engine, claimer Claimer, logger *zap.Logger) *ResetScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	rs := &ResetScheduler{engine: engine, claimer: claimer, logger: logger}
	now := engine.clock.Now()
	for _, k := range Kinds {
		if c := engine.cadences[k]; c != nil {
			rs.boundary[k] = c.Next(now)
		}
	}
	return rs
}

// NextBoundary is the next global reset time of kind.
func (rs *ResetScheduler) NextBoundary(kind Kind) time.Time {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.boundary[kind]
}

// Tick runs one sweep: announcements for passed boundaries first, then the
// per-player resets that are due.
func (rs *ResetScheduler) Tick(ctx context.Context) error {
	rs.announceDue(ctx)
	n, err := rs.engine.SweepResets(ctx)
	if n > 0 {
		rs.logger.Info("quest resets applied", zap.Int("count", n))
	}
	return err
}

func (rs *ResetScheduler) announceDue(ctx context.Context) {
	now := rs.engine.clock.Now()
	for _, k := range Kinds {
		c := rs.engine.cadences[k]
		if c == nil {
			continue
		}
		rs.mu.Lock()
		b := rs.boundary[k]
		passed := !b.IsZero() && !now.Before(b)
		if passed {
			// skip boundaries missed while the process was down; only the
			// latest one is announced
			for next := c.Next(b); !now.Before(next); next = c.Next(next) {
				b = next
			}
			rs.boundary[k] = c.Next(b)
		}
		rs.mu.Unlock()
		if passed {
			rs.announce(ctx, k, b)
		}
	}
}

// ForceReset resets kind for every cached player right now and announces it.
func (rs *ResetScheduler) ForceReset(ctx context.Context, kind Kind) (int, error) {
	n, err := rs.engine.ResetAll(ctx, kind)
	if err != nil {
		return n, err
	}
	rs.announce(ctx, kind, rs.engine.clock.Now())
	return n, nil
}

func (rs *ResetScheduler) announce(ctx context.Context, kind Kind, boundary time.Time) {
	if rs.claimer != nil {
		key := fmt.Sprintf("quest:reset:%s:%d", kind, boundary.Unix())
		ok, err := rs.claimer.SetNX(ctx, key, strconv.FormatInt(rs.engine.clock.Now().Unix(), 10), 48*time.Hour)
		if err != nil {
			rs.logger.Warn("reset announce claim failed", zap.String("kind", kind.String()), zap.Error(err))
		} else if !ok {
			return
		}
	}
	rs.logger.Info("quest reset window started",
		zap.String("kind", kind.String()), zap.Time("boundary", boundary))
	if _, err := rs.engine.hooks.Trigger(ctx, hook.OnResetBroadcast, BroadcastEvent{Kind: kind, Boundary: boundary}); err != nil {
		rs.logger.Debug("reset broadcast interrupted", zap.Error(err))
	}
}
