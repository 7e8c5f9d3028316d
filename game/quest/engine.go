package quest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kasuganosora/questengine/plugin/hook"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Options configures an Engine. Repo and Cadences are required.
type Options struct {
	Repo      Repository
	Factory   *Factory
	Dispenser Dispenser
	Hooks     *hook.HookCenter
	// Persister enables write-behind saves; nil saves synchronously.
	Persister *Persister
	Clock     clockwork.Clock
	Policy    RerollPolicy
	Cadences  Cadences
	// KeepClaimedOnReset leaves claimed quests in their slot across a reset.
	KeepClaimedOnReset bool
	Logger             *zap.Logger
}

type entry struct {
	mu   sync.Mutex
	data *PlayerData
}

// Engine owns the in-memory quest state of every player it has seen.
type Engine struct {
	repo        Repository
	factory     *Factory
	dispenser   Dispenser
	hooks       *hook.HookCenter
	persister   *Persister
	clock       clockwork.Clock
	policy      RerollPolicy
	cadences    Cadences
	keepClaimed bool
	logger      *zap.Logger

	mu      sync.RWMutex
	players map[uuid.UUID]*entry
	loads   singleflight.Group

	onlineMu sync.Mutex
	online   map[uuid.UUID]Player
}

// NewEngine wires an Engine from opts.
func NewEngine(opts Options) *Engine {
	if opts.Factory == nil {
		opts.Factory = NewFactory(nil, nil)
	}
	if opts.Hooks == nil {
		opts.Hooks = hook.NewHookCenter(opts.Logger)
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		repo:        opts.Repo,
		factory:     opts.Factory,
		dispenser:   opts.Dispenser,
		hooks:       opts.Hooks,
		persister:   opts.Persister,
		clock:       opts.Clock,
		policy:      opts.Policy,
		cadences:    opts.Cadences,
		keepClaimed: opts.KeepClaimedOnReset,
		logger:      opts.Logger,
		players:     make(map[uuid.UUID]*entry),
		online:      make(map[uuid.UUID]Player),
	}
}

func (e *Engine) Hooks() *hook.HookCenter { return e.hooks }
func (e *Engine) Clock() clockwork.Clock  { return e.clock }
func (e *Engine) Policy() RerollPolicy    { return e.policy }

// tx collects the side effects of one serialized player operation.
type tx struct {
	dirty   bool
	history []Completion
	signals []signal
}

type signal struct {
	event string
	data  any
}

func (t *tx) emit(event string, data any) {
	t.signals = append(t.signals, signal{event: event, data: data})
}

// entry returns the cached entry for id, loading it on first use. A failed
// load is returned and nothing is cached.
func (e *Engine) entry(ctx context.Context, id uuid.UUID) (*entry, error) {
	e.mu.RLock()
	ent := e.players[id]
	e.mu.RUnlock()
	if ent != nil {
		return ent, nil
	}

	v, err, _ := e.loads.Do(id.String(), func() (any, error) {
		e.mu.RLock()
		ent := e.players[id]
		e.mu.RUnlock()
		if ent != nil {
			return ent, nil
		}
		d, err := e.repo.LoadPlayerData(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load player %s: %w", id, err)
		}
		if d == nil {
			d = NewPlayerData(id, e.clock.Now())
		}
		return e.adopt(d), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry), nil
}

// adopt stamps missing reset deadlines and inserts d unless the player is
// already cached.
func (e *Engine) adopt(d *PlayerData) *entry {
	now := e.clock.Now()
	for _, k := range Kinds {
		last, next := d.LastReset(k), d.NextReset(k)
		if !next.IsZero() || e.cadences[k] == nil {
			continue
		}
		if last.IsZero() {
			last = now
		}
		d.RestoreReset(k, last, e.cadences[k].Next(last))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if ent := e.players[d.PlayerID]; ent != nil {
		return ent
	}
	ent := &entry{data: d}
	e.players[d.PlayerID] = ent
	return ent
}

// update runs fn with the player's lock held, then persists and emits the
// collected signals after the lock is released.
func (e *Engine) update(ctx context.Context, id uuid.UUID, fn func(d *PlayerData, t *tx) error) error {
	ent, err := e.entry(ctx, id)
	if err != nil {
		return err
	}
	var t tx
	ent.mu.Lock()
	err = fn(ent.data, &t)
	if err == nil && t.dirty {
		e.save(ctx, ent.data.Clone(), t.history)
	}
	ent.mu.Unlock()
	if err != nil {
		return err
	}
	for _, s := range t.signals {
		if _, herr := e.hooks.Trigger(ctx, s.event, s.data); herr != nil {
			e.logger.Debug("signal interrupted", zap.String("event", s.event), zap.Error(herr))
		}
	}
	return nil
}

// save is called with the player lock held so snapshots enter the queue in
// mutation order.
func (e *Engine) save(ctx context.Context, snap *PlayerData, history []Completion) {
	if e.persister != nil {
		e.persister.Enqueue(snap, history...)
		return
	}
	if err := e.repo.SavePlayerData(ctx, snap); err != nil {
		e.logger.Error("save player quest data failed",
			zap.String("player_id", snap.PlayerID.String()), zap.Error(err))
	}
	for _, c := range history {
		if err := e.repo.RecordCompletion(ctx, c); err != nil {
			e.logger.Error("record quest completion failed",
				zap.String("player_id", c.PlayerID.String()), zap.Error(err))
		}
	}
}

// PlayerData returns a copy of the player's aggregate, loading it if needed.
func (e *Engine) PlayerData(ctx context.Context, id uuid.UUID) (*PlayerData, error) {
	var out *PlayerData
	err := e.update(ctx, id, func(d *PlayerData, _ *tx) error {
		out = d.Clone()
		return nil
	})
	return out, err
}

// Preload caches every stored aggregate so resets reach offline players too.
func (e *Engine) Preload(ctx context.Context) (int, error) {
	all, err := e.repo.LoadAllPlayerData(ctx)
	if err != nil {
		return 0, fmt.Errorf("preload players: %w", err)
	}
	for _, d := range all {
		e.adopt(d)
	}
	return len(all), nil
}

// CachedPlayers lists the ids currently held in memory.
func (e *Engine) CachedPlayers() []uuid.UUID {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(e.players))
	for id := range e.players {
		ids = append(ids, id)
	}
	return ids
}

// AssignQuest returns the active quest of kind, drawing a new one only when
// the slot has none. The result is nil when the catalog has nothing for the
// player's bracket.
func (e *Engine) AssignQuest(ctx context.Context, p Player, kind Kind) (*Quest, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w %d", ErrUnknownKind, int(kind))
	}
	var out *Quest
	err := e.update(ctx, p.ID, func(d *PlayerData, t *tx) error {
		if d.HasActiveQuest(kind) {
			out = d.Quest(kind).Clone()
			return nil
		}
		q := e.factory.Generate(kind, p.Level)
		if q == nil {
			e.logger.Warn("no quest templates for bracket",
				zap.String("kind", kind.String()), zap.Int("level", p.Level))
			return nil
		}
		d.SetQuest(q)
		t.dirty = true
		t.emit(hook.OnQuestAssigned, AssignedEvent{PlayerID: p.ID, Quest: q.Record()})
		out = q.Clone()
		return nil
	})
	return out, err
}

// RerollQuest replaces the quest of kind when the tier quota allows it.
// ok is false when the quota is used up or no replacement could be drawn;
// in both cases nothing changes.
func (e *Engine) RerollQuest(ctx context.Context, p Player, kind Kind) (q *Quest, ok bool, err error) {
	if !kind.Valid() {
		return nil, false, fmt.Errorf("%w %d", ErrUnknownKind, int(kind))
	}
	err = e.update(ctx, p.ID, func(d *PlayerData, t *tx) error {
		if !d.CanReroll(kind, p.Tier, e.policy) {
			return nil
		}
		nq := e.factory.Generate(kind, p.Level)
		if nq == nil {
			return nil
		}
		d.UseReroll(kind, e.clock.Now())
		d.SetQuest(nq)
		t.dirty = true
		t.emit(hook.OnQuestRerolled, AssignedEvent{PlayerID: p.ID, Quest: nq.Record(), Rerolled: true})
		q, ok = nq.Clone(), true
		return nil
	})
	return q, ok, err
}

// ProgressResult lists the slots one progress report touched.
type ProgressResult struct {
	Advanced  []Record `json:"advanced"`
	Completed []Record `json:"completed"`
}

// UpdateProgress fans one gameplay event out to every slot it applies to.
func (e *Engine) UpdateProgress(ctx context.Context, p Player, objective Objective, amount int, target string) (ProgressResult, error) {
	var res ProgressResult
	if !objective.Valid() {
		return res, fmt.Errorf("%w %q", ErrUnknownObjective, objective)
	}
	if amount <= 0 {
		return res, nil
	}
	err := e.update(ctx, p.ID, func(d *PlayerData, t *tx) error {
		res = e.applyProgress(d, p, objective, amount, target, t)
		return nil
	})
	return res, err
}

func (e *Engine) applyProgress(d *PlayerData, p Player, objective Objective, amount int, target string, t *tx) ProgressResult {
	var res ProgressResult
	for _, k := range Kinds {
		q := d.Quest(k)
		if q == nil || q.IsCompleted() || q.Objective() != objective {
			continue
		}
		if !q.IsApplicableForLevel(p.Level) || !q.MatchesTarget(target) {
			continue
		}
		done := q.AddProgress(amount)
		t.dirty = true
		res.Advanced = append(res.Advanced, q.Record())
		if done {
			res.Completed = append(res.Completed, q.Record())
			t.emit(hook.OnQuestComplete, CompletedEvent{PlayerID: d.PlayerID, Quest: q.Record()})
			e.logger.Info("quest completed",
				zap.String("player_id", d.PlayerID.String()),
				zap.String("kind", k.String()),
				zap.String("objective", string(objective)))
		}
	}
	return res
}

// Claim failure reasons.
const (
	ReasonNoQuest        = "no_quest"
	ReasonNotCompleted   = "not_completed"
	ReasonAlreadyClaimed = "already_claimed"
	ReasonInventoryFull  = "inventory_full"
)

// ClaimResult is the outcome of ClaimReward. Reason is set when OK is false.
type ClaimResult struct {
	OK     bool              `json:"ok"`
	Reason string            `json:"reason,omitempty"`
	Quest  *Record           `json:"quest,omitempty"`
	Items  []json.RawMessage `json:"items,omitempty"`
}

// ClaimReward pays out a completed quest. hasSpace is the caller's inventory
// check; nil means there is room. A dispenser error aborts with no changes.
func (e *Engine) ClaimReward(ctx context.Context, p Player, kind Kind, hasSpace func() bool) (ClaimResult, error) {
	var res ClaimResult
	if !kind.Valid() {
		return res, fmt.Errorf("%w %d", ErrUnknownKind, int(kind))
	}
	err := e.update(ctx, p.ID, func(d *PlayerData, t *tx) error {
		q := d.Quest(kind)
		switch {
		case q == nil:
			res.Reason = ReasonNoQuest
			return nil
		case q.IsRewardClaimed():
			res.Reason = ReasonAlreadyClaimed
			return nil
		case !q.IsCompleted():
			res.Reason = ReasonNotCompleted
			return nil
		case hasSpace != nil && !hasSpace():
			res.Reason = ReasonInventoryFull
			return nil
		}

		bracket := BracketForLevel(p.Level)
		var items []json.RawMessage
		if e.dispenser != nil {
			var err error
			if items, err = e.dispenser.Dispense(ctx, p.ID, kind, bracket); err != nil {
				return fmt.Errorf("dispense rewards: %w", err)
			}
		}

		q.ClaimReward()
		d.IncrementCompleted(kind)
		now := e.clock.Now()
		t.dirty = true
		t.history = append(t.history, Completion{
			PlayerID: p.ID, QuestID: q.ID(), Kind: kind, Objective: q.Objective(), CompletedAt: now,
		})
		t.emit(hook.OnRewardsDispense, RewardsEvent{PlayerID: p.ID, Kind: kind, Bracket: bracket.Label(), Items: items})

		switch kind {
		case KindDaily:
			e.applyProgress(d, p, CompleteDailyQuests, 1, "", t)
		case KindWeekly:
			e.applyProgress(d, p, CompleteWeeklyQuests, 1, "", t)
		}

		rec := q.Record()
		res = ClaimResult{OK: true, Quest: &rec, Items: items}
		return nil
	})
	return res, err
}

// ForceComplete sets the quest of kind to its required amount. ok is false
// when the slot is empty.
func (e *Engine) ForceComplete(ctx context.Context, id uuid.UUID, kind Kind) (q *Quest, ok bool, err error) {
	if !kind.Valid() {
		return nil, false, fmt.Errorf("%w %d", ErrUnknownKind, int(kind))
	}
	err = e.update(ctx, id, func(d *PlayerData, t *tx) error {
		cur := d.Quest(kind)
		if cur == nil {
			return nil
		}
		if cur.SetProgress(cur.RequiredAmount()) {
			t.emit(hook.OnQuestComplete, CompletedEvent{PlayerID: id, Quest: cur.Record()})
		}
		t.dirty = true
		q, ok = cur.Clone(), true
		return nil
	})
	return q, ok, err
}

// ResetQuestProgress puts the quest of kind back to its assigned state.
func (e *Engine) ResetQuestProgress(ctx context.Context, id uuid.UUID, kind Kind) (bool, error) {
	if !kind.Valid() {
		return false, fmt.Errorf("%w %d", ErrUnknownKind, int(kind))
	}
	ok := false
	err := e.update(ctx, id, func(d *PlayerData, t *tx) error {
		if q := d.Quest(kind); q != nil {
			q.Reset()
			t.dirty, ok = true, true
		}
		return nil
	})
	return ok, err
}

// ResetPlayer closes the current window of each kind for one player, exactly
// as the scheduled reset would.
func (e *Engine) ResetPlayer(ctx context.Context, id uuid.UUID, kinds ...Kind) error {
	for _, k := range kinds {
		if !k.Valid() {
			return fmt.Errorf("%w %d", ErrUnknownKind, int(k))
		}
	}
	return e.update(ctx, id, func(d *PlayerData, t *tx) error {
		now := e.clock.Now()
		for _, k := range kinds {
			e.applyReset(d, k, now, t)
		}
		return nil
	})
}

// ResetAll closes the window of kind for every cached player and returns
// how many were reset.
func (e *Engine) ResetAll(ctx context.Context, kind Kind) (int, error) {
	if !kind.Valid() {
		return 0, fmt.Errorf("%w %d", ErrUnknownKind, int(kind))
	}
	n := 0
	for _, id := range e.CachedPlayers() {
		if err := e.ResetPlayer(ctx, id, kind); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// SweepResets applies every reset that is due at now to every cached player.
// It returns the number of player resets applied.
func (e *Engine) SweepResets(ctx context.Context) (int, error) {
	n := 0
	for _, id := range e.CachedPlayers() {
		err := e.update(ctx, id, func(d *PlayerData, t *tx) error {
			now := e.clock.Now()
			for _, k := range Kinds {
				if d.ResetDue(k, now) {
					e.applyReset(d, k, now, t)
					n++
				}
			}
			return nil
		})
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func (e *Engine) applyReset(d *PlayerData, kind Kind, now time.Time, t *tx) {
	var next time.Time
	if c := e.cadences[kind]; c != nil {
		next = c.Next(now)
	}
	d.ApplyReset(kind, now, next, e.keepClaimed)
	t.dirty = true
	t.emit(hook.OnQuestReset, ResetEvent{PlayerID: d.PlayerID, Kind: kind, At: now})
	e.logger.Debug("quest window reset",
		zap.String("player_id", d.PlayerID.String()), zap.String("kind", kind.String()))
}

// Flush waits until every queued snapshot is written.
func (e *Engine) Flush(ctx context.Context) {
	if e.persister != nil {
		e.persister.Flush(ctx)
	}
}
