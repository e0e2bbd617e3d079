package worker

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jzx17/gotaskpool/pkg/metrics"
	"github.com/jzx17/gotaskpool/pkg/scheduler"
	"github.com/jzx17/gotaskpool/pkg/task"
	"github.com/jzx17/gotaskpool/pkg/types"
)

const (
	// MaxPoolSize is the largest number of workers a pool accepts
	MaxPoolSize = 128

	// DefaultPoolSize is the worker count used by DefaultConfig
	DefaultPoolSize = 4

	// DefaultPoolName labels logs and metrics when Config.Name is empty
	DefaultPoolName = "default"
)

// Config defines configuration for a task pool
type Config struct {
	// NumWorkers is the fixed number of workers, 0..MaxPoolSize.
	// A pool with no workers queues tasks until it is terminated.
	NumWorkers int

	// Scheduler orders tasks (optional, defaults to a FIFO scheduler)
	Scheduler types.Scheduler

	// Name labels logs and metrics
	Name string

	// Logger (optional, defaults to zap.L())
	Logger *zap.Logger

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// ErrorHandler receives panics reported when workers are joined
	ErrorHandler types.ErrorHandler

	// Metrics registry (optional)
	Metrics *metrics.Registry

	// PinWorkers locks every worker to its own OS thread
	PinWorkers bool
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		NumWorkers: DefaultPoolSize,
		Name:       DefaultPoolName,
		Clock:      types.NewRealClock(),
	}
}

// Validate checks the configuration bounds
func (c *Config) Validate() error {
	if c.NumWorkers < 0 || c.NumWorkers > MaxPoolSize {
		return fmt.Errorf("%w: worker count must be between 0 and %d, got %d",
			types.ErrInvalidConfig, MaxPoolSize, c.NumWorkers)
	}
	return nil
}

// Pool owns a scheduler and a fixed set of workers
type Pool struct {
	config    *Config
	scheduler types.Scheduler
	workers   []*Worker

	logger  *zap.SugaredLogger
	metrics *metrics.PoolObserver
	started time.Time

	seq            atomic.Uint64
	totalCommitted atomic.Int64
	totalCompleted atomic.Int64
	totalCancelled atomic.Int64
	terminated     atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// NewPool validates config, builds the workers and starts them
func NewPool(config *Config) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	cfg := *config
	if cfg.Scheduler == nil {
		cfg.Scheduler = scheduler.NewFIFOScheduler()
	}
	if cfg.Clock == nil {
		cfg.Clock = types.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}
	if cfg.Name == "" {
		cfg.Name = DefaultPoolName
	}

	p := &Pool{
		config:    &cfg,
		scheduler: cfg.Scheduler,
		workers:   make([]*Worker, cfg.NumWorkers),
		logger:    cfg.Logger.Sugar().Named("pool").With("pool", cfg.Name),
		metrics:   cfg.Metrics.ForPool(cfg.Name),
		started:   cfg.Clock.Now(),
	}

	for i := range p.workers {
		w := NewWorkerWithClock(i, cfg.Scheduler, cfg.Clock)
		w.SetLogger(cfg.Logger.With(zap.String("pool", cfg.Name)))
		w.SetPinned(cfg.PinWorkers)
		w.SetCompletionCallback(p.onTaskRun)
		w.SetExitCallback(p.onWorkerExit)
		p.workers[i] = w
	}
	for _, w := range p.workers {
		w.Start()
	}
	p.refreshGauges()

	p.logger.Infow("pool started",
		"workers", cfg.NumWorkers,
		"scheduler", fmt.Sprintf("%T", cfg.Scheduler),
		"pinned", cfg.PinWorkers)

	return p, nil
}

// Commit wraps fn in a task, schedules it and returns its handle. The handle
// shares the task state before the task becomes visible to any worker.
// Committing to a terminated pool returns a handle resolved as cancelled.
func Commit[T any](p *Pool, fn func() T) *task.Handle[T] {
	seq := p.seq.Add(1)
	t := task.New(fn, task.WithSeq(seq), task.WithFinishHook(p.onTaskFinished))
	handle := t.Handle()

	p.totalCommitted.Add(1)
	p.metrics.Committed()

	if p.terminated.Load() {
		p.logger.Warnw("commit after termination, cancelling task", "task_id", t.ID())
	}

	p.scheduler.Schedule(t)
	p.metrics.SetQueueLength(p.queueLength())
	return handle
}

// Submit commits a closure with no result
func (p *Pool) Submit(fn func()) *task.Handle[struct{}] {
	if fn == nil {
		return Commit[struct{}](p, nil)
	}
	return Commit(p, func() struct{} {
		fn()
		return struct{}{}
	})
}

// Terminate cancels every queued task, then joins every worker in turn.
// Panics that ended workers are reported as warnings and passed to the
// error handler; the joined error is returned. Safe to call more than once.
func (p *Pool) Terminate() error {
	p.closeOnce.Do(func() {
		p.terminated.Store(true)
		p.logger.Infow("pool terminating", "queued", p.queueLength())

		p.scheduler.Terminate()

		var errs []error
		for _, w := range p.workers {
			err := w.Stop()
			if err == nil {
				continue
			}
			p.logger.Warnw("worker exited unexpectedly", "worker_id", w.ID(), "error", err)
			errs = append(errs, err)
			p.handleError(err)
		}

		p.refreshGauges()
		p.closeErr = errors.Join(errs...)

		p.logger.Infow("pool terminated",
			"committed", p.totalCommitted.Load(),
			"completed", p.totalCompleted.Load(),
			"cancelled", p.totalCancelled.Load(),
			"worker_failures", len(errs))
	})
	return p.closeErr
}

// Close implements io.Closer; it is equivalent to Terminate
func (p *Pool) Close() error {
	return p.Terminate()
}

// handleError passes err to the configured error handler
func (p *Pool) handleError(err error) {
	if p.config.ErrorHandler == nil {
		return
	}
	if handledErr := p.config.ErrorHandler(err); handledErr != nil {
		p.logger.Warnw("error handler failed", "error", handledErr)
	}
}

func (p *Pool) onTaskFinished(_ string, state types.TaskState) {
	switch state {
	case types.StateCompleted:
		p.totalCompleted.Add(1)
		p.metrics.Completed()
	case types.StateCancelled:
		p.totalCancelled.Add(1)
		p.metrics.Cancelled()
	}
}

func (p *Pool) onTaskRun(d time.Duration, _ types.TaskState) {
	p.metrics.Executed(d)
	p.refreshGauges()
}

func (p *Pool) onWorkerExit(_ *Worker, err error) {
	if err != nil {
		p.metrics.WorkerPanicked()
	}
	p.refreshGauges()
}

func (p *Pool) refreshGauges() {
	if p.metrics == nil {
		return
	}
	alive, active := p.countWorkers()
	p.metrics.SetWorkers(alive, active)
	p.metrics.SetQueueLength(p.queueLength())
}

func (p *Pool) countWorkers() (alive, active int) {
	for _, w := range p.workers {
		switch w.State() {
		case WorkerStateWorking:
			alive++
			active++
		case WorkerStateIdle:
			alive++
		}
	}
	return alive, active
}

// queueLength returns the scheduler backlog, or -1 if it cannot report one
func (p *Pool) queueLength() int {
	if ql, ok := p.scheduler.(types.QueueLengther); ok {
		return ql.Len()
	}
	return -1
}

// Name returns the pool name
func (p *Pool) Name() string {
	return p.config.Name
}

// Size returns the number of workers
func (p *Pool) Size() int {
	return len(p.workers)
}

// IsTerminated checks if Terminate has been called
func (p *Pool) IsTerminated() bool {
	return p.terminated.Load()
}

// Stats gets basic pool statistics
func (p *Pool) Stats() types.PoolStats {
	alive, active := p.countWorkers()

	return types.PoolStats{
		PoolSize:       len(p.workers),
		AliveWorkers:   alive,
		ActiveWorkers:  active,
		QueueSize:      p.queueLength(),
		TotalCommitted: p.totalCommitted.Load(),
		TotalCompleted: p.totalCompleted.Load(),
		TotalCancelled: p.totalCancelled.Load(),
		Uptime:         p.config.Clock.Since(p.started),
	}
}

// WorkerStats gets statistics of all Workers
func (p *Pool) WorkerStats() []WorkerStats {
	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Stats()
	}
	return stats
}
