package reward

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/kasuganosora/questengine/game/quest"
	"github.com/kasuganosora/questengine/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memStore struct {
	mu      sync.Mutex
	tables  map[string][]json.RawMessage
	loads   int
	loadErr error
}

func newMemStore() *memStore { return &memStore{tables: map[string][]json.RawMessage{}} }

func (s *memStore) LoadRewards(_ context.Context, kind quest.Kind, bracket quest.Bracket) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.tables[cacheKey(kind, bracket)], nil
}

func (s *memStore) SaveRewards(_ context.Context, kind quest.Kind, bracket quest.Bracket, items []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[cacheKey(kind, bracket)] = items
	return nil
}

func (s *memStore) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

func nop() *zap.Logger { l, _ := zap.NewDevelopment(); return l }

var gold = []json.RawMessage{json.RawMessage(`{"item":"gold","amount":250}`)}

func TestRewards_Cached(t *testing.T) {
	ctx := context.Background()
	c, ps := testutil.SetupTestCache(t)
	store := newMemStore()
	require.NoError(t, store.SaveRewards(ctx, quest.KindDaily, quest.Bracket1to49, gold))
	d := New(store, c, ps, time.Minute, nop())

	for range 3 {
		items, err := d.Rewards(ctx, quest.KindDaily, quest.Bracket1to49)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.JSONEq(t, string(gold[0]), string(items[0]))
	}
	assert.Equal(t, 1, store.loadCount())
}

func TestSetRewards_Invalidates(t *testing.T) {
	ctx := context.Background()
	c, ps := testutil.SetupTestCache(t)
	store := newMemStore()
	d := New(store, c, ps, time.Minute, nop())

	items, err := d.Rewards(ctx, quest.KindWeekly, quest.Bracket80Plus)
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, d.SetRewards(ctx, quest.KindWeekly, quest.Bracket80Plus, gold))
	items, err = d.Rewards(ctx, quest.KindWeekly, quest.Bracket80Plus)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, store.loadCount())
}

func TestDispense_PublishesDelivery(t *testing.T) {
	ctx := context.Background()
	c, ps := testutil.SetupTestCache(t)
	store := newMemStore()
	require.NoError(t, store.SaveRewards(ctx, quest.KindMonthly, quest.Bracket65to80, gold))
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC))
	d := New(store, c, ps, time.Minute, nop()).WithClock(clock)

	msgs, cancel, err := ps.Subscribe(ctx, DeliveryChannel)
	require.NoError(t, err)
	defer cancel()

	player := uuid.New()
	items, err := d.Dispense(ctx, player, quest.KindMonthly, quest.Bracket65to80)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	select {
	case m := <-msgs:
		var got Delivery
		require.NoError(t, json.Unmarshal([]byte(m.Payload), &got))
		assert.Equal(t, player, got.PlayerID)
		assert.Equal(t, quest.KindMonthly, got.Kind)
		assert.Equal(t, "65-80", got.Bracket)
		assert.True(t, clock.Now().Equal(got.At))
		require.Len(t, got.Items, 1)
	case <-time.After(time.Second):
		t.Fatal("no delivery published")
	}
}

func TestDispense_EmptyTable(t *testing.T) {
	ctx := context.Background()
	c, ps := testutil.SetupTestCache(t)
	d := New(newMemStore(), c, ps, time.Minute, nop())

	msgs, cancel, err := ps.Subscribe(ctx, DeliveryChannel)
	require.NoError(t, err)
	defer cancel()

	items, err := d.Dispense(ctx, uuid.New(), quest.KindDaily, quest.Bracket50to64)
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	select {
	case <-msgs:
		t.Fatal("empty table must not publish")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDispense_StoreError(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("db down")
	d := New(store, nil, nil, time.Minute, nop())

	_, err := d.Dispense(context.Background(), uuid.New(), quest.KindDaily, quest.Bracket1to49)
	assert.ErrorContains(t, err, "db down")
}
