package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// TaskFn is the function signature for scheduled tasks. ctx is cancelled
// when the scheduler stops.
type TaskFn func(ctx context.Context)

// Task describes one registered periodic task.
type Task struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval"`
	NextRun  time.Time     `json:"next_run"`
	LastRun  time.Time     `json:"last_run,omitzero"`
}

// Scheduler runs named periodic tasks. A run that is still in progress when
// the next interval elapses is not overlapped; the late tick is dropped and
// the task is rescheduled.
type Scheduler struct {
	mu       sync.Mutex
	sched    gocron.Scheduler
	tasks    map[string]taskEntry
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
}

type taskEntry struct {
	id       uuid.UUID
	job      gocron.Job
	interval time.Duration
}

type options struct {
	clock clockwork.Clock
}

// Option configures New.
type Option func(*options)

// WithClock drives the scheduler from clock instead of wall time.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// New creates and starts a Scheduler.
func New(logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	schedOpts := []gocron.SchedulerOption{gocron.WithLogger(zapLogger{logger.Sugar()})}
	if o.clock != nil {
		schedOpts = append(schedOpts, gocron.WithClock(o.clock))
	}
	sched, err := gocron.NewScheduler(schedOpts...)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		sched:  sched,
		tasks:  make(map[string]taskEntry),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	sched.Start()
	return s, nil
}

// AddTicker registers a task to run on a fixed interval.
// If a task with the same name exists, it is replaced.
func (s *Scheduler) AddTicker(name string, interval time.Duration, fn TaskFn) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: task %s: interval must be positive", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.tasks[name]; ok {
		if err := s.sched.RemoveJob(old.id); err != nil {
			s.logger.Warn("scheduler: remove replaced task", zap.String("name", name), zap.Error(err))
		}
		delete(s.tasks, name)
	}

	job, err := s.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.wrap(name, fn)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduler: task %s: %w", name, err)
	}
	s.tasks[name] = taskEntry{id: job.ID(), job: job, interval: interval}
	s.logger.Info("scheduler task registered", zap.String("name", name), zap.Duration("interval", interval))
	return nil
}

func (s *Scheduler) wrap(name string, fn TaskFn) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduler task panicked",
					zap.String("task", name),
					zap.Any("recover", r))
			}
		}()
		if s.ctx.Err() != nil {
			return
		}
		fn(s.ctx)
	}
}

// RunNow triggers an immediate run of a registered task. The singleton
// guard still applies.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("scheduler: no task %q", name)
	}
	return e.job.RunNow()
}

// Remove stops and removes a task by name.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.tasks[name]; ok {
		if err := s.sched.RemoveJob(e.id); err != nil {
			s.logger.Warn("scheduler: remove task", zap.String("name", name), zap.Error(err))
		}
		delete(s.tasks, name)
	}
}

// Stop cancels running tasks and waits for them to return. Safe to call
// more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		if err := s.sched.Shutdown(); err != nil {
			s.logger.Warn("scheduler shutdown", zap.Error(err))
		}
	})
}

// ListTickers returns the names of all registered tasks, sorted.
func (s *Scheduler) ListTickers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for name := range s.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tasks describes every registered task, sorted by name.
func (s *Scheduler) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for name, e := range s.tasks {
		t := Task{Name: name, Interval: e.interval}
		if next, err := e.job.NextRun(); err == nil {
			t.NextRun = next
		}
		if last, err := e.job.LastRun(); err == nil {
			t.LastRun = last
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// zapLogger adapts zap to gocron.Logger.
type zapLogger struct{ s *zap.SugaredLogger }

func (l zapLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l zapLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l zapLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l zapLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
