package quest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type persistJob struct {
	data    *PlayerData
	history []Completion
}

// Persister writes player snapshots behind the engine. Jobs for one player
// coalesce to the latest snapshot; one drain runs at a time so writes for a
// player never reorder.
type Persister struct {
	repo     Repository
	logger   *zap.Logger
	clock    clockwork.Clock
	interval time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]*persistJob
	order   []uuid.UUID

	drainMu sync.Mutex
	wake    chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPersister starts the background worker. interval bounds how long a
// snapshot may wait when no wake-up arrives.
func NewPersister(repo Repository, interval time.Duration, clock clockwork.Clock, logger *zap.Logger) *Persister {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Persister{
		repo:     repo,
		logger:   logger,
		clock:    clock,
		interval: interval,
		pending:  make(map[uuid.UUID]*persistJob),
		wake:     make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.worker()
	return p
}

// Enqueue records the latest snapshot of a player plus any history rows.
// It never blocks on I/O.
func (p *Persister) Enqueue(d *PlayerData, history ...Completion) {
	p.mu.Lock()
	j, ok := p.pending[d.PlayerID]
	if !ok {
		j = &persistJob{}
		p.pending[d.PlayerID] = j
		p.order = append(p.order, d.PlayerID)
	}
	j.data = d
	j.history = append(j.history, history...)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending is the number of players waiting to be written.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Flush writes everything queued so far before returning.
func (p *Persister) Flush(ctx context.Context) {
	p.drain(ctx)
}

// Stop ends the worker and flushes what is left.
func (p *Persister) Stop(ctx context.Context) {
	select {
	case <-p.stopCh:
	default:
		close(p.stopCh)
	}
	p.wg.Wait()
	p.drain(ctx)
}

func (p *Persister) worker() {
	defer p.wg.Done()
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.wake:
			p.drain(context.Background())
		case <-ticker.Chan():
			p.drain(context.Background())
		case <-p.stopCh:
			return
		}
	}
}

func (p *Persister) drain(ctx context.Context) {
	p.drainMu.Lock()
	defer p.drainMu.Unlock()

	p.mu.Lock()
	jobs, order := p.pending, p.order
	p.pending = make(map[uuid.UUID]*persistJob)
	p.order = nil
	p.mu.Unlock()

	for _, id := range order {
		j := jobs[id]
		if err := p.repo.SavePlayerData(ctx, j.data); err != nil {
			p.logger.Error("save player quest data failed",
				zap.String("player_id", id.String()), zap.Error(err))
		}
		for _, c := range j.history {
			if err := p.repo.RecordCompletion(ctx, c); err != nil {
				p.logger.Error("record quest completion failed",
					zap.String("player_id", id.String()),
					zap.String("quest_id", c.QuestID.String()), zap.Error(err))
			}
		}
	}
}
