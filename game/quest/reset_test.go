package quest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kasuganosora/questengine/plugin/hook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memClaimer struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memClaimer) SetNX(_ context.Context, key string, _ string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func TestResetScheduler_DailyScenario(t *testing.T) {
	f := newFixture(t)
	rs := NewResetScheduler(f.engine, &memClaimer{}, nil)
	rec := record(f.engine.Hooks(), hook.OnQuestReset, hook.OnResetBroadcast)
	ctx := context.Background()
	p := player(35, TierBase)

	// the quest is assigned on 2026-03-09, so the window started yesterday
	// relative to the 00:02 tick
	_, err := f.engine.AssignQuest(ctx, p, KindDaily)
	require.NoError(t, err)

	f.clock.Advance(62 * time.Minute) // 2026-03-10 00:02
	require.NoError(t, rs.Tick(ctx))

	d, _ := f.engine.PlayerData(ctx, p.ID)
	assert.Nil(t, d.Quest(KindDaily))
	assert.Equal(t, time.Date(2026, 3, 10, 0, 2, 0, 0, time.UTC), d.LastReset(KindDaily))
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), d.NextReset(KindDaily))
	assert.Equal(t, 1, rec.count(hook.OnQuestReset))
	assert.Equal(t, 1, rec.count(hook.OnResetBroadcast))

	q, _ := f.engine.AssignQuest(ctx, p, KindDaily)
	f.clock.Advance(time.Minute) // 00:03
	require.NoError(t, rs.Tick(ctx))

	d, _ = f.engine.PlayerData(ctx, p.ID)
	require.NotNil(t, d.Quest(KindDaily))
	assert.Equal(t, q.ID(), d.Quest(KindDaily).ID())
	assert.Equal(t, time.Date(2026, 3, 10, 0, 2, 0, 0, time.UTC), d.LastReset(KindDaily))
	assert.Equal(t, 1, rec.count(hook.OnQuestReset))
	assert.Equal(t, 1, rec.count(hook.OnResetBroadcast))
}

func TestResetScheduler_WeeklyOnConfiguredDay(t *testing.T) {
	f := newFixture(t)
	rs := NewResetScheduler(f.engine, nil, nil)
	ctx := context.Background()
	p := player(35, TierBase)
	_, _ = f.engine.AssignQuest(ctx, p, KindWeekly)

	// Tuesday through Sunday: no weekly reset
	f.clock.Advance(2 * time.Hour)
	for i := 0; i < 6; i++ {
		require.NoError(t, rs.Tick(ctx))
		d, _ := f.engine.PlayerData(ctx, p.ID)
		require.NotNil(t, d.Quest(KindWeekly), "day %d", i)
		f.clock.Advance(24 * time.Hour)
	}

	// now Monday 2026-03-16 01:00
	require.NoError(t, rs.Tick(ctx))
	d, _ := f.engine.PlayerData(ctx, p.ID)
	assert.Nil(t, d.Quest(KindWeekly))
	assert.Equal(t, time.Date(2026, 3, 23, 0, 0, 0, 0, time.UTC), d.NextReset(KindWeekly))
}

func TestResetScheduler_MissedWindowsApplyOnce(t *testing.T) {
	f := newFixture(t)
	rs := NewResetScheduler(f.engine, &memClaimer{}, nil)
	rec := record(f.engine.Hooks(), hook.OnQuestReset, hook.OnResetBroadcast)
	ctx := context.Background()
	p := player(35, TierBase)
	_, _ = f.engine.AssignQuest(ctx, p, KindDaily)

	f.clock.Advance(3*24*time.Hour + time.Hour) // three daily boundaries passed
	require.NoError(t, rs.Tick(ctx))
	require.NoError(t, rs.Tick(ctx))

	assert.Equal(t, 1, rec.count(hook.OnQuestReset))
	assert.Equal(t, 1, rec.count(hook.OnResetBroadcast))
	d, _ := f.engine.PlayerData(ctx, p.ID)
	assert.True(t, d.NextReset(KindDaily).After(f.clock.Now()))
}

func TestResetScheduler_BroadcastDedupedAcrossInstances(t *testing.T) {
	f := newFixture(t)
	claimer := &memClaimer{}
	a := NewResetScheduler(f.engine, claimer, nil)
	b := NewResetScheduler(f.engine, claimer, nil)
	rec := record(f.engine.Hooks(), hook.OnResetBroadcast)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, a.Tick(context.Background()))
	require.NoError(t, b.Tick(context.Background()))
	assert.Equal(t, 1, rec.count(hook.OnResetBroadcast))
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), a.NextBoundary(KindDaily))
}

func TestResetScheduler_MonthlyResetsCounters(t *testing.T) {
	f := newFixture(t)
	rs := NewResetScheduler(f.engine, nil, nil)
	ctx := context.Background()
	p := player(35, TierBase)
	_, _ = f.engine.AssignQuest(ctx, p, KindDaily)
	_, _ = f.engine.UpdateProgress(ctx, p, KillNormal, 500, "")
	res, _ := f.engine.ClaimReward(ctx, p, KindDaily, nil)
	require.True(t, res.OK)

	f.clock.Advance(22 * 24 * time.Hour) // 2026-03-31 23:00
	require.NoError(t, rs.Tick(ctx))
	d, _ := f.engine.PlayerData(ctx, p.ID)
	assert.Zero(t, d.CompletedDaily)
	assert.Equal(t, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), d.NextReset(KindMonthly))
}

func TestResetScheduler_ForceReset(t *testing.T) {
	f := newFixture(t)
	rs := NewResetScheduler(f.engine, &memClaimer{}, nil)
	rec := record(f.engine.Hooks(), hook.OnResetBroadcast)
	ctx := context.Background()
	p := player(35, TierBase)
	_, _ = f.engine.AssignQuest(ctx, p, KindMonthly)

	n, err := rs.ForceReset(ctx, KindMonthly)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, rec.count(hook.OnResetBroadcast))
	d, _ := f.engine.PlayerData(ctx, p.ID)
	assert.Nil(t, d.Quest(KindMonthly))
}
