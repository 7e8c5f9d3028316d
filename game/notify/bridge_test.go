package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kasuganosora/questengine/cache"
	"github.com/kasuganosora/questengine/game/quest"
	"github.com/kasuganosora/questengine/plugin/hook"
	"github.com/kasuganosora/questengine/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*hook.HookCenter, cache.PubSub) {
	t.Helper()
	_, ps := testutil.SetupTestCache(t)
	hc := hook.NewHookCenter(zap.NewNop())
	NewBridge(ps, zap.NewNop()).Register(hc)
	return hc, ps
}

func receive(t *testing.T, ch <-chan *cache.Message) Envelope {
	t.Helper()
	select {
	case m := <-ch:
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &env))
		return env
	case <-time.After(time.Second):
		t.Fatal("no message")
	}
	return Envelope{}
}

func TestBridge_PlayerEvents(t *testing.T) {
	ctx := context.Background()
	hc, ps := setup(t)
	player := uuid.New()
	msgs, cancel, err := ps.Subscribe(ctx, PlayerChannel(player))
	require.NoError(t, err)
	defer cancel()

	q := quest.NewQuest(quest.KindDaily, quest.KillBoss, 1, 49, 5, "Kill 5 bosses", "")
	rec := q.Record()

	cases := []struct {
		event string
		data  any
		typ   string
	}{
		{hook.OnQuestAssigned, quest.AssignedEvent{PlayerID: player, Quest: rec}, TypeAssigned},
		{hook.OnQuestRerolled, quest.AssignedEvent{PlayerID: player, Quest: rec, Rerolled: true}, TypeRerolled},
		{hook.OnQuestComplete, quest.CompletedEvent{PlayerID: player, Quest: rec}, TypeCompleted},
		{hook.OnRewardsDispense, quest.RewardsEvent{PlayerID: player, Kind: quest.KindDaily, Bracket: "1-49"}, TypeRewards},
		{hook.OnQuestReset, quest.ResetEvent{PlayerID: player, Kind: quest.KindWeekly}, TypeReset},
	}
	for _, tc := range cases {
		_, err := hc.Trigger(ctx, tc.event, tc.data)
		require.NoError(t, err)
		env := receive(t, msgs)
		assert.Equal(t, tc.typ, env.Type, tc.event)
	}
}

func TestBridge_CompletedPayload(t *testing.T) {
	ctx := context.Background()
	hc, ps := setup(t)
	player := uuid.New()
	msgs, cancel, err := ps.Subscribe(ctx, PlayerChannel(player))
	require.NoError(t, err)
	defer cancel()

	q := quest.NewQuest(quest.KindWeekly, quest.FinishQHell, 50, 64, 2, "Finish Q2 Hell", "q2")
	q.AddProgress(2)
	_, err = hc.Trigger(ctx, hook.OnQuestComplete, quest.CompletedEvent{PlayerID: player, Quest: q.Record()})
	require.NoError(t, err)

	env := receive(t, msgs)
	var got quest.CompletedEvent
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, player, got.PlayerID)
	assert.Equal(t, quest.KindWeekly, got.Quest.Kind)
	assert.True(t, got.Quest.Completed)
	assert.Equal(t, "q2", got.Quest.SpecificTarget)
}

func TestBridge_Broadcast(t *testing.T) {
	ctx := context.Background()
	hc, ps := setup(t)
	msgs, cancel, err := ps.Subscribe(ctx, AnnounceChannel)
	require.NoError(t, err)
	defer cancel()

	at := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err = hc.Trigger(ctx, hook.OnResetBroadcast, quest.BroadcastEvent{Kind: quest.KindDaily, Boundary: at})
	require.NoError(t, err)

	env := receive(t, msgs)
	assert.Equal(t, TypeBroadcast, env.Type)
	var got quest.BroadcastEvent
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.True(t, at.Equal(got.Boundary))
}

func TestBridge_OtherPlayerNotNotified(t *testing.T) {
	ctx := context.Background()
	hc, ps := setup(t)
	msgs, cancel, err := ps.Subscribe(ctx, PlayerChannel(uuid.New()))
	require.NoError(t, err)
	defer cancel()

	_, err = hc.Trigger(ctx, hook.OnQuestReset, quest.ResetEvent{PlayerID: uuid.New(), Kind: quest.KindDaily})
	require.NoError(t, err)

	select {
	case <-msgs:
		t.Fatal("message leaked to another player")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBridge_Unregister(t *testing.T) {
	hc, ps := setup(t)
	b := NewBridge(ps, nil)
	assert.Equal(t, 1, hc.Count(hook.OnQuestComplete))
	b.Unregister(hc)
	assert.Equal(t, 0, hc.Count(hook.OnQuestComplete))
}
