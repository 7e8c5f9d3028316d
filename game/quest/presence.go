package quest

import (
	"context"

	"github.com/google/uuid"
	"github.com/kasuganosora/questengine/plugin/hook"
)

// Login marks p online. The online-time clock restarts at login so offline
// gaps never count. A repeated login of an online player accrues the time
// since the last tick instead.
func (e *Engine) Login(ctx context.Context, p Player) error {
	err := e.update(ctx, p.ID, func(d *PlayerData, t *tx) error {
		e.onlineMu.Lock()
		prev, online := e.online[p.ID]
		e.onlineMu.Unlock()
		if online {
			e.accrue(d, prev, t)
		} else {
			d.LastActive = e.clock.Now()
			t.dirty = true
		}
		t.emit(hook.OnPlayerLogin, PresenceEvent{PlayerID: p.ID, Online: true})
		return nil
	})
	if err != nil {
		return err
	}
	e.onlineMu.Lock()
	e.online[p.ID] = p
	e.onlineMu.Unlock()
	return nil
}

// Heartbeat refreshes the level and tier of an online player. It reports
// false when the player is not online.
func (e *Engine) Heartbeat(p Player) bool {
	e.onlineMu.Lock()
	defer e.onlineMu.Unlock()
	if _, ok := e.online[p.ID]; !ok {
		return false
	}
	e.online[p.ID] = p
	return true
}

// Logout accrues the final stretch of online time and marks id offline.
func (e *Engine) Logout(ctx context.Context, id uuid.UUID) error {
	e.onlineMu.Lock()
	p, ok := e.online[id]
	delete(e.online, id)
	e.onlineMu.Unlock()
	if !ok {
		return nil
	}
	return e.update(ctx, id, func(d *PlayerData, t *tx) error {
		e.accrue(d, p, t)
		t.emit(hook.OnPlayerLogout, PresenceEvent{PlayerID: id, Online: false})
		return nil
	})
}

// Online returns the players currently marked online.
func (e *Engine) Online() []Player {
	e.onlineMu.Lock()
	defer e.onlineMu.Unlock()
	out := make([]Player, 0, len(e.online))
	for _, p := range e.online {
		out = append(out, p)
	}
	return out
}

// AccrueOnline adds elapsed online time for every online player and returns
// how many were updated.
func (e *Engine) AccrueOnline(ctx context.Context) (int, error) {
	n := 0
	for _, p := range e.Online() {
		err := e.update(ctx, p.ID, func(d *PlayerData, t *tx) error {
			e.accrue(d, p, t)
			return nil
		})
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// accrue feeds SPEND_HOURS_ONLINE once per whole hour crossed.
func (e *Engine) accrue(d *PlayerData, p Player, t *tx) {
	before := d.OnlineHours()
	if d.UpdateOnlineTime(e.clock.Now()) == 0 {
		return
	}
	t.dirty = true
	if crossed := d.OnlineHours() - before; crossed > 0 {
		e.applyProgress(d, p, SpendHoursOnline, int(crossed), "", t)
	}
}
