package quest

import (
	"time"

	"github.com/google/uuid"
)

// RerollPolicy is the per-window reroll quota of each tier. A negative value
// means unlimited.
type RerollPolicy struct {
	Base    int
	Premium int
	Elite   int
}

// DefaultRerollPolicy: base never, premium once per window, elite unlimited.
var DefaultRerollPolicy = RerollPolicy{Base: 0, Premium: 1, Elite: -1}

func (p RerollPolicy) quota(t Tier) int {
	switch t {
	case TierElite:
		return p.Elite
	case TierPremium:
		return p.Premium
	default:
		return p.Base
	}
}

// PlayerData is the per-player aggregate. It is not safe for concurrent use;
// the engine serializes access per player.
type PlayerData struct {
	PlayerID        uuid.UUID
	CompletedDaily  int
	CompletedWeekly int
	OnlineMinutes   int64
	LastActive      time.Time

	quests     [kindCount]*Quest
	rerolls    [kindCount]int
	lastReroll [kindCount]time.Time
	lastReset  [kindCount]time.Time
	nextReset  [kindCount]time.Time
}

// NewPlayerData returns an empty aggregate for id.
func NewPlayerData(id uuid.UUID, now time.Time) *PlayerData {
	return &PlayerData{PlayerID: id, LastActive: now}
}

// Quest returns the slot for kind, or nil.
func (d *PlayerData) Quest(kind Kind) *Quest {
	if !kind.Valid() {
		return nil
	}
	return d.quests[kind]
}

// SetQuest stores q in the slot of q.Kind(); other slots are untouched.
func (d *PlayerData) SetQuest(q *Quest) {
	if q == nil || !q.Kind().Valid() {
		return
	}
	d.quests[q.Kind()] = q
}

func (d *PlayerData) ClearQuest(kind Kind) {
	if kind.Valid() {
		d.quests[kind] = nil
	}
}

// HasActiveQuest is true while the slot holds a quest whose reward is unclaimed.
func (d *PlayerData) HasActiveQuest(kind Kind) bool {
	q := d.Quest(kind)
	return q != nil && !q.IsRewardClaimed()
}

func (d *PlayerData) Rerolls(kind Kind) int          { return d.rerolls[kind] }
func (d *PlayerData) LastReroll(kind Kind) time.Time { return d.lastReroll[kind] }
func (d *PlayerData) LastReset(kind Kind) time.Time  { return d.lastReset[kind] }
func (d *PlayerData) NextReset(kind Kind) time.Time  { return d.nextReset[kind] }

// CanReroll applies the tier quota to the rerolls used in the current window.
func (d *PlayerData) CanReroll(kind Kind, tier Tier, policy RerollPolicy) bool {
	if !kind.Valid() {
		return false
	}
	q := policy.quota(tier)
	if q < 0 {
		return true
	}
	return d.rerolls[kind] < q
}

func (d *PlayerData) UseReroll(kind Kind, now time.Time) {
	d.rerolls[kind]++
	d.lastReroll[kind] = now
}

// RestoreReroll sets stored reroll state for kind.
func (d *PlayerData) RestoreReroll(kind Kind, used int, last time.Time) {
	if kind.Valid() {
		d.rerolls[kind] = max(used, 0)
		d.lastReroll[kind] = last
	}
}

// RestoreReset sets stored reset timestamps for kind.
func (d *PlayerData) RestoreReset(kind Kind, last, next time.Time) {
	if kind.Valid() {
		d.lastReset[kind] = last
		d.nextReset[kind] = next
	}
}

// ResetDue reports whether the window of kind has ended at now.
// An aggregate without a next-due time is never due.
func (d *PlayerData) ResetDue(kind Kind, now time.Time) bool {
	next := d.nextReset[kind]
	return !next.IsZero() && !now.Before(next)
}

// ApplyReset closes the current window of kind: the slot is cleared, the
// reroll counter zeroed and the reset stamped. With keepClaimed a claimed
// quest stays in its slot. The monthly window also zeroes online time and
// the completion counters.
func (d *PlayerData) ApplyReset(kind Kind, now, next time.Time, keepClaimed bool) {
	if !kind.Valid() {
		return
	}
	if q := d.quests[kind]; q != nil && !(keepClaimed && q.IsRewardClaimed()) {
		d.quests[kind] = nil
	}
	d.rerolls[kind] = 0
	d.lastReset[kind] = now
	d.nextReset[kind] = next
	if kind == KindMonthly {
		d.OnlineMinutes = 0
		d.CompletedDaily = 0
		d.CompletedWeekly = 0
	}
}

// IncrementCompleted bumps the counter for kind. Monthly has none.
func (d *PlayerData) IncrementCompleted(kind Kind) {
	switch kind {
	case KindDaily:
		d.CompletedDaily++
	case KindWeekly:
		d.CompletedWeekly++
	}
}

// UpdateOnlineTime adds the whole minutes elapsed since LastActive and
// returns how many were added. LastActive advances only by those whole
// minutes so the sub-minute remainder carries into the next call.
func (d *PlayerData) UpdateOnlineTime(now time.Time) int64 {
	if d.LastActive.IsZero() || now.Before(d.LastActive) {
		d.LastActive = now
		return 0
	}
	mins := int64(now.Sub(d.LastActive) / time.Minute)
	if mins < 1 {
		return 0
	}
	d.OnlineMinutes += mins
	d.LastActive = d.LastActive.Add(time.Duration(mins) * time.Minute)
	return mins
}

// OnlineHours is the whole hours of accumulated online time.
func (d *PlayerData) OnlineHours() int64 { return d.OnlineMinutes / 60 }

// Clone returns a deep copy safe to hand to other goroutines.
func (d *PlayerData) Clone() *PlayerData {
	c := *d
	for i, q := range d.quests {
		c.quests[i] = q.Clone()
	}
	return &c
}
