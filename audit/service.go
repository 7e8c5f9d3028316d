package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kasuganosora/questengine/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Entry holds one administrative action to be logged. Request and Response
// are marshalled to JSON; values that fail to marshal are dropped.
type Entry struct {
	TraceID    string
	Actor      string
	Action     string
	PlayerID   string
	Kind       string
	Request    any
	Response   any
	Status     int
	Error      string
	IP         string
	DurationMs int
}

// Service logs audit entries asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.AuditLog
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	clock  clockwork.Clock
	logger *zap.Logger
}

// New creates a new audit Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	return NewWithClock(db, clockwork.NewRealClock(), logger)
}

// NewWithClock is New with an explicit flush clock.
func NewWithClock(db *gorm.DB, clock clockwork.Clock, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		db:     db,
		ch:     make(chan *model.AuditLog, queueSize),
		stopCh: make(chan struct{}),
		clock:  clock,
		logger: logger,
	}
	ticker := clock.NewTicker(flushInterval)
	svc.wg.Add(1)
	go svc.worker(ticker)
	return svc
}

// Log enqueues an entry for async DB write. Entries are dropped once the
// queue is full or the service has stopped.
func (svc *Service) Log(entry Entry) {
	select {
	case <-svc.stopCh:
		svc.logger.Warn("audit service stopped, dropping entry", zap.String("action", entry.Action))
		return
	default:
	}
	record := &model.AuditLog{
		TraceID:    entry.TraceID,
		Actor:      entry.Actor,
		Action:     entry.Action,
		PlayerID:   entry.PlayerID,
		Kind:       entry.Kind,
		Request:    marshal(entry.Request),
		Response:   marshal(entry.Response),
		Status:     entry.Status,
		Error:      entry.Error,
		IP:         entry.IP,
		DurationMs: entry.DurationMs,
		CreatedAt:  svc.clock.Now(),
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("audit channel full, dropping entry",
			zap.String("action", entry.Action))
	}
}

func marshal(v any) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// Stop flushes remaining entries and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	svc.once.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker(ticker clockwork.Ticker) {
	defer svc.wg.Done()
	defer ticker.Stop()

	batch := make([]*model.AuditLog, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("audit batch write failed", zap.Error(err), zap.Int("entries", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-svc.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.Chan():
			flush()
		case <-svc.stopCh:
			for {
				select {
				case entry := <-svc.ch:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}
